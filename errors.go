package jpegenc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Use errors.Is to classify an error returned by this package;
// its message describes the particular failure.
var (
	ErrInvalidPixelFormat  = errors.New("invalid pixel format")
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrUnsupportedBuild    = errors.New("unsupported build")
	ErrCodecFailure        = errors.New("codec failure")
	ErrImplementationLimit = errors.New("implementation limit")
)

// kindError attaches a kind to an error without changing its message.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string { return e.cause.Error() }

func (e *kindError) Unwrap() error { return e.cause }

func (e *kindError) Is(target error) bool { return target == e.kind }

// Format prints the cause, so that %+v shows its stack trace.
func (e *kindError) Format(s fmt.State, verb rune) {
	if f, ok := e.cause.(fmt.Formatter); ok {
		f.Format(s, verb)
		return
	}
	fmt.Fprint(s, e.cause.Error())
}

func newError(kind error, format string, args ...interface{}) error {
	return &kindError{kind: kind, cause: errors.Errorf(format, args...)}
}

// codecError marks err as a codec failure, keeping its message.
func codecError(err error) error {
	if err == nil {
		return nil
	}
	var ke *kindError
	if errors.As(err, &ke) {
		return err
	}
	return &kindError{kind: ErrCodecFailure, cause: errors.WithStack(err)}
}
