package cppreflect

import (
	"errors"
	"fmt"
)

// Configuration errors.
var (
	ErrNoDatabase      = errors.New("no compilation database registered")
	ErrInvalidDatabase = errors.New("invalid compilation database")
	ErrDatabaseLoaded  = errors.New("compilation database already loaded")
)

// Resolution errors.
var (
	ErrUnresolvedPath = errors.New("path matches no compilation database entry")
	ErrAmbiguousPath  = errors.New("ambiguous path")
	ErrUnknownUnit    = errors.New("no unit registered for path")
	ErrNoCommand      = errors.New("no build command for path")
)

// ErrMaterialize matches every materialization error.
var ErrMaterialize = errors.New("materialization failed")

// ErrorKind classifies registry failures.
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota + 1
	KindResolution
	KindMaterialization
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindResolution:
		return "resolution"
	case KindMaterialization:
		return "materialization"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned by every fallible Registry and UnitEntry operation.
type Error struct {
	Kind ErrorKind
	Path string // requested or resolved path; empty for configuration errors
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cppreflect: %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("cppreflect: %s error for %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every materialization error match ErrMaterialize.
func (e *Error) Is(target error) bool {
	return target == ErrMaterialize && e.Kind == KindMaterialization
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func configError(err error) error {
	return &Error{Kind: KindConfiguration, Err: err}
}

func resolutionError(path string, err error) error {
	return &Error{Kind: KindResolution, Path: path, Err: err}
}
