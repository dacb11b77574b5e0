package loop

import "errors"

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("loop already running")
