package sddp

import "errors"

// ErrSolveFailed reports a subproblem the external solver could not
// bring to optimality (infeasible, unbounded, or other non-optimal
// termination). Under the FailFast policy passes wrap and return it;
// under SkipSample the affected contribution is dropped instead.
var ErrSolveFailed = errors.New("sddp: subproblem solve failed")
