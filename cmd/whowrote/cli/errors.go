package cli

// SilentError wraps an error whose message the command already printed.
// main skips printing it again but still exits non-zero.
type SilentError struct {
	Err error
}

// NewSilentError wraps err.
func NewSilentError(err error) *SilentError {
	return &SilentError{Err: err}
}

func (e *SilentError) Error() string {
	if e.Err == nil {
		return "silent error"
	}
	return e.Err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.Err
}
