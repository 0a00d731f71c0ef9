package alpr

import "errors"

var (
	ErrConfiguration = errors.New("alpr binary not found on PATH or bundled directory")
	ErrInvocation    = errors.New("alpr invocation failed")
	ErrTimeout       = errors.New("alpr timed out")
	ErrEngineFailure = errors.New("alpr exited with non-zero status")
)
