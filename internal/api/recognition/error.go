package recognition

import (
	"PlateRecognizer/pkg/response"
	"net/http"
)

var (
	ErrNoFile            = response.NewError(http.StatusBadRequest, "No file uploaded")
	ErrEmptyFileName     = response.NewError(http.StatusBadRequest, "Empty file name")
	ErrFileTooLarge      = response.NewError(http.StatusBadRequest, "file size exceeds limit")
	ErrStoreImage        = response.NewError(http.StatusInternalServerError, "failed to store image")
	ErrEngineNotFound    = response.NewError(http.StatusInternalServerError, "OpenALPR is not configured")
	ErrInvocationFailed  = response.NewError(http.StatusInternalServerError, "OpenALPR invocation failed")
	ErrEngineFailed      = response.NewError(http.StatusInternalServerError, "OpenALPR failed")
	ErrEngineTimeout     = response.NewError(http.StatusGatewayTimeout, "OpenALPR timed out")
	ErrSavePlate         = response.NewError(http.StatusInternalServerError, "failed to save plate record")
	ErrPlateNotFound     = response.NewError(http.StatusNotFound, "plate record not found")
	ErrInvalidPagination = response.NewError(http.StatusBadRequest, "invalid pagination parameters")
	ErrInvalidTimeRange  = response.NewError(http.StatusBadRequest, "invalid time range")
	ErrTooManyPlates     = response.NewError(http.StatusBadRequest, "too many plate filters")
)

// DebugError carries diagnostics for a failed recognition. The handler only
// exposes Debug in local mode.
type DebugError struct {
	Err   error
	Debug *Debug
}

func (e *DebugError) Error() string {
	return e.Err.Error()
}

func (e *DebugError) Unwrap() error {
	return e.Err
}

func WithDebug(err error, debug *Debug) error {
	return &DebugError{Err: err, Debug: debug}
}
