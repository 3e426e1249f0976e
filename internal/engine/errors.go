package engine

import "errors"

var (
	ErrNotRunning     = errors.New("engine: session loop is not running")
	ErrAlreadyRunning = errors.New("engine: session loop already running")
	ErrNoStore        = errors.New("engine: session has no store")
)
