package stubparser

import (
	"errors"
	"fmt"
)

// ErrInvalidStub matches every *InvalidStubError via errors.Is.
var ErrInvalidStub = errors.New("invalid stub")

// InvalidStubError reports stub content the parser cannot accept: an
// unsupported statement, an unevaluable condition, a bad __all__, or (with
// strict warnings) a name conflict.
type InvalidStubError struct {
	Path    string
	Message string
	Err     error
}

func (e *InvalidStubError) Error() string {
	if e.Path == "" {
		return "invalid stub: " + e.Message
	}
	return e.Path + ": " + e.Message
}

func (e *InvalidStubError) Unwrap() error { return e.Err }

func (e *InvalidStubError) Is(target error) bool { return target == ErrInvalidStub }

func invalidStub(path, format string, args ...any) error {
	return &InvalidStubError{Path: path, Message: fmt.Sprintf(format, args...)}
}
