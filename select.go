package uthread

import "fmt"

// AnyFinished yields repeatedly until at least one of threads has finished,
// then returns it. Each pass polls every candidate in argument order and
// yields when none has finished yet; when several have finished, the first
// in argument order is returned.
func (rt *Runtime) AnyFinished(threads ...*Thread) (*Thread, error) {
	if len(threads) == 0 {
		return nil, fmt.Errorf("%w: no threads given", ErrInvalidArgument)
	}
	for {
		for _, t := range threads {
			if t.finished {
				return t, nil
			}
		}
		if err := rt.Yield(); err != nil {
			return nil, err
		}
	}
}
