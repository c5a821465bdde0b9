package main

import "github.com/emiliopalmerini/socialab/internal/cli"

func main() {
	cli.Execute()
}
