package ai

import (
	"context"

	"github.com/spigell/compass/internal/experience"
)

// ExtractionRequest carries what a producer needs to propose changes for one user turn.
type ExtractionRequest struct {
	Turn        int
	Message     string
	Experiences []experience.Record
}

// OperationExtractor turns a user message into proposed changes to the collected experiences.
type OperationExtractor interface {
	Extract(ctx context.Context, req *ExtractionRequest) ([]experience.ProposedOperation, error)
}
