package executor

import (
	"context"
	"fmt"

	"github.com/good-yellow-bee/compliops/internal/models"
)

// State is threaded through the stages of one report run.
type State struct {
	Alert          *models.Alert
	Classification models.Classification
	Profile        Profile

	// Outputs of the gateway workflow. Discarded on any failure.
	Analysis    string
	ProfileNote string

	Content   string
	Generator string
}

// Stage is one step of a pipeline. A stage may update the state and returns
// an error to abort the pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// runPipeline runs stages in order and stops at the first error.
func runPipeline(ctx context.Context, st *State, stages ...Stage) error {
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", stage.Name, err)
		}
		if err := stage.Run(ctx, st); err != nil {
			return fmt.Errorf("%s: %w", stage.Name, err)
		}
	}
	return nil
}
