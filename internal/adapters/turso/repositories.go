package turso

import (
	"database/sql"

	"github.com/emiliopalmerini/socialab/internal/ports"
)

// Repositories holds all turso repository implementations as port interfaces.
type Repositories struct {
	Experiments ports.ExperimentRepository
	Variants    ports.VariantRepository
	Metrics     ports.MetricStore
	Snapshots   ports.ResultSnapshotRepository
}

// NewRepositories creates all turso repository implementations from a database connection.
func NewRepositories(db *sql.DB) *Repositories {
	x := Wrap(db)
	return &Repositories{
		Experiments: NewExperimentRepository(x),
		Variants:    NewVariantRepository(x),
		Metrics:     NewMetricStore(x),
		Snapshots:   NewResultSnapshotRepository(x),
	}
}
