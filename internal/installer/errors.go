package installer

import (
	"errors"
	"fmt"
)

// Kind classifies installer failures. Every kind is terminal for a run.
type Kind int

const (
	// KindConfig is a required field missing or malformed.
	KindConfig Kind = iota + 1
	// KindIO is a failed directory creation or path check.
	KindIO
	// KindServiceManager is a failure reported by the OS service layer.
	KindServiceManager
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindIO:
		return "IOError"
	case KindServiceManager:
		return "ServiceManagerError"
	default:
		return "UnknownError"
	}
}

// ExitCode is the process exit status for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig:
		return 2
	case KindIO:
		return 3
	case KindServiceManager:
		return 4
	default:
		return 1
	}
}

var (
	// ErrNotRunning means the service was installed and started but the
	// service manager does not report it as running.
	ErrNotRunning = errors.New("service installed but not running")

	// ErrPathCollision means a non-directory occupies a path that must be a directory.
	ErrPathCollision = errors.New("path exists and is not a directory")
)

// Error carries the failure kind plus the operation and path or service name
// it concerns, so an operator can diagnose it by hand.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func configError(op string, err error) error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

func ioError(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

func managerError(op, name string, err error) error {
	return &Error{Kind: KindServiceManager, Op: op, Path: name, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ExitCode maps err to a process exit status: 0 for nil, a per-kind code
// for installer errors and 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}

// NewError builds an installer error for callers outside this package,
// such as the CLI reporting a malformed flag as a configuration error.
func NewError(kind Kind, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
