package daemon

import "errors"

// Sentinel errors for daemon operations, checked with errors.Is.
var (
	// ErrDaemonNotRunning indicates the daemon is not currently running
	ErrDaemonNotRunning = errors.New("daemon is not running")

	// ErrDaemonAlreadyRunning indicates the daemon is already running
	ErrDaemonAlreadyRunning = errors.New("daemon is already running")
)
