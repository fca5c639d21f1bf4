package gate

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("operation not allowed in current phase")
	ErrQuizNotReady      = errors.New("quiz not ready")
	ErrNotPassed         = errors.New("active segment not passed")
	ErrClosed            = errors.New("session closed")
)
