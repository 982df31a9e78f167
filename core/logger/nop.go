package logger

// Nop discards everything. Useful as a default and in tests.
type Nop struct{}

func (Nop) Debugf(format string, args ...any)        {}
func (Nop) Debugw(msg string, fields map[string]any) {}
func (Nop) Infof(format string, args ...any)         {}
func (Nop) Warnf(format string, args ...any)         {}
func (Nop) Errorf(format string, args ...any)        {}
