package scheduler

import (
	"errors"
	"fmt"
)

// ErrScanInFlight rejects a run request for a scan whose previous run has
// not finished. Runs for one scan never interleave.
var ErrScanInFlight = errors.New("scan already in flight")

// InvalidScheduleError reports a frequency or cron expression that cannot
// produce a schedule. Surfaces at save time, not at fire time.
type InvalidScheduleError struct {
	Expr string
	Err  error
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule expression %q: %v", e.Expr, e.Err)
}

func (e *InvalidScheduleError) Unwrap() error { return e.Err }
