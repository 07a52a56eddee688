package tileslice

import "log"

// Logger receives the slicer's one class of non-fatal diagnostic: a
// warning that an input edge looks like malformed geometry. The
// slicer never returns an error for numeric misbehavior, it only
// warns and carries on.
type Logger interface {
	Warn(message string)
}

// defaultLogger routes Warn through the standard library logger, the
// same one the rest of this module's CLI uses for startup messages.
type defaultLogger struct{}

func (defaultLogger) Warn(message string) {
	log.Printf("tileslice: warning: %s", message)
}
