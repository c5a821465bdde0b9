package experiment

import (
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/emiliopalmerini/socialab/internal/domain"
)

// validate is the validator instance for service inputs.
var validate *validator.Validate

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		return domain.MetricType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("variant_type", func(fl validator.FieldLevel) bool {
		return domain.VariantType(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		v := fl.Field().Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	})
}

// validateInput runs struct validation and converts failures into an
// invalid_argument InputError naming the first offending field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.NewInputError(domain.CodeInvalidArgument, "%v", err)
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return domain.NewInputError(domain.CodeInvalidArgument, "%s is required", field)
	case "metric":
		return domain.NewInputError(domain.CodeInvalidArgument, "unknown metric type %q", fe.Value())
	case "finite":
		return domain.NewInputError(domain.CodeInvalidArgument, "%s must be a finite number, got %v", field, fe.Value())
	case "variant_type":
		return domain.NewInputError(domain.CodeInvalidArgument, "unknown variant type %q", fe.Value())
	default:
		return domain.NewInputError(domain.CodeInvalidArgument, "invalid %s: %v (%s=%s)", field, fe.Value(), fe.Tag(), fe.Param())
	}
}
