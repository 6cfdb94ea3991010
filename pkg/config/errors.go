package config

// ErrorKind classifies configuration failures.
type ErrorKind int

const (
	// KindConfiguration covers missing or malformed user input.
	KindConfiguration ErrorKind = iota + 1
	// KindEnvironment covers host problems: no home directory, directory
	// not creatable.
	KindEnvironment
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// Error is returned by Resolve and the directory helpers.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
