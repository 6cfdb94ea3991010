package logger

import "fmt"

// PanicMessage renders a recovered panic payload as text.
func PanicMessage(payload any) string {
	switch p := payload.(type) {
	case nil:
		return "panic with nil payload"
	case string:
		return p
	case error:
		return p.Error()
	case fmt.Stringer:
		return p.String()
	default:
		return fmt.Sprintf("%v", p)
	}
}

// LogPanic logs a recovered panic payload at fatal level. It must not panic
// itself: it is the last log line before the process dies.
func LogPanic(payload any) {
	defer func() {
		_ = recover()
	}()
	Fatal(PanicMessage(payload))
}

// RecoverAndLog is the process failure hook. Deferred at the top of a
// goroutine, it logs the panic payload and stopMessage, then re-panics so the
// runtime still terminates the process.
//
//	defer logger.RecoverAndLog("stopping server")
func RecoverAndLog(stopMessage string) {
	r := recover()
	if r == nil {
		return
	}
	LogPanic(r)
	logStop(stopMessage)
	panic(r)
}

// PanicError carries a panic payload recovered by RecoverToError.
type PanicError struct {
	Payload any
}

func (e *PanicError) Error() string {
	return PanicMessage(e.Payload)
}

// RecoverToError converts a panic into a *PanicError instead of
// re-panicking. Used where the caller owns its failure boundary, such as an
// RPC handler; the panic is logged at error level since the process lives on.
func RecoverToError(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	Error("recovered panic", KeyError, PanicMessage(r))
	if errp != nil {
		*errp = &PanicError{Payload: r}
	}
}

func logStop(stopMessage string) {
	defer func() {
		_ = recover()
	}()
	if stopMessage != "" {
		Info(stopMessage)
	}
}
