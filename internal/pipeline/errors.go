package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid_pipeline_config")
	ErrInvalidTransition = errors.New("invalid_state_transition")
	ErrWorkerTimeout     = errors.New("worker_timeout")
)

// ChainScope labels the chain-wide analytics unit in errors and logs.
const ChainScope = "chain"

// BrandError reports the analytics unit that failed a run.
type BrandError struct {
	Brand string
	Err   error
}

func (e *BrandError) Error() string {
	return fmt.Sprintf("brand %s: %v", e.Brand, e.Err)
}

func (e *BrandError) Unwrap() error {
	return e.Err
}
