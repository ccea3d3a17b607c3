package jobs

import "errors"

// ErrRunInProgress indicates the execution slot is occupied; the caller's
// request did not start a new run.
var ErrRunInProgress = errors.New("job run already in progress")
