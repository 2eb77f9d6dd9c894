package backend

import "fmt"

// TransientError is a network or HTTP failure talking to the backend.
// During catalog bootstrap it triggers a retry with backoff; during
// steady-state polling it fails only the current tick or order.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
