package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrLoaderRequired is returned when a content loader is not provided.
	ErrLoaderRequired = errors.New("content loader required")

	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrPipelineReleased is returned by Enqueue after Release.
	ErrPipelineReleased = errors.New("pipeline released")

	// ErrDuplicateJob is returned by Enqueue for a job id that is already tracked.
	ErrDuplicateJob = errors.New("duplicate job id")

	// ErrUnknownJob is returned by Wait for an id with no status record.
	ErrUnknownJob = errors.New("unknown job")

	// ErrQueueEmpty is returned by JobQueue.Pop when nothing is queued.
	ErrQueueEmpty = errors.New("job queue empty")

	// ErrCorruptJob is returned by JobQueue.Pop for an entry that cannot be
	// decoded. The entry has already been removed from the queue.
	ErrCorruptJob = errors.New("corrupt queue entry")
)

// Failure classes recorded on failed jobs. Fetch, embedding and persistence
// failures are terminal. The others are recovered and only logged.
var (
	ErrFetchFailure           = errors.New("fetch failure")
	ErrEmbeddingFailure       = errors.New("embedding failure")
	ErrAnalysisFailure        = errors.New("analysis failure")
	ErrResonanceSearchFailure = errors.New("resonance search failure")
	ErrBridgeMappingFailure   = errors.New("bridge mapping failure")
	ErrGraphWeaveFailure      = errors.New("graph weave failure")
	ErrPersistenceFailure     = errors.New("persistence failure")
)

// StepError is a failure of one job step. It unwraps to both its failure
// class and the underlying cause.
type StepError struct {
	Step JobState
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stepFailure(step JobState, err error) *StepError {
	var se *StepError
	if errors.As(err, &se) {
		return se
	}
	return &StepError{Step: step, Kind: failureClass(step), Err: err}
}

func failureClass(step JobState) error {
	switch step {
	case StateEmbedding:
		return ErrEmbeddingFailure
	case StateAnalyzing:
		return ErrAnalysisFailure
	case StateResonanceSearch:
		return ErrResonanceSearchFailure
	case StateConceptBridging:
		return ErrBridgeMappingFailure
	case StateGraphWeave:
		return ErrGraphWeaveFailure
	default:
		return ErrPersistenceFailure
	}
}
