package prompt

import (
	"errors"
	"fmt"

	"github.com/cadenza-ai/cadenza/internal/types"
)

// SizeExceededError reports a context block that would overflow its hard
// byte budget. It carries the measured size and the limit so callers can
// tell the user exactly how far over budget the ledger has grown.
type SizeExceededError struct {
	Kind     string // caller class: "planner" or "worker"
	Measured int    // UTF-8 byte size of the assembled text
	Limit    int    // configured budget for this caller class
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("[%s] %s context size (%d bytes) exceeds limit (%d bytes); refine the ledger to fit",
		types.CONTEXT_SIZE_EXCEEDED, e.Kind, e.Measured, e.Limit)
}

// Is makes errors.Is(err, types.NewError(types.CONTEXT_SIZE_EXCEEDED, ""))
// match, keeping the error identifiable through the shared taxonomy.
func (e *SizeExceededError) Is(target error) bool {
	var cerr *types.CadenzaError
	if errors.As(target, &cerr) {
		return cerr.Code == types.CONTEXT_SIZE_EXCEEDED
	}
	return false
}
