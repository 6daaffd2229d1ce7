package logging

// DiscardLogger is a no-op logger that discards all log messages. Use it
// in benchmarks, or on flight builds where the log transport is not yet
// up when a ring buffer has to be constructed.
//
// Fatalf on DiscardLogger does nothing; wire a real logger with a
// FatalHandler to catch fatal medium conditions.
type DiscardLogger struct{}

// Discard is the singleton discard logger.
var Discard Logger = &DiscardLogger{}

// Errorf implements Logger.
func (l *DiscardLogger) Errorf(format string, args ...any) {}

// Warnf implements Logger.
func (l *DiscardLogger) Warnf(format string, args ...any) {}

// Infof implements Logger.
func (l *DiscardLogger) Infof(format string, args ...any) {}

// Debugf implements Logger.
func (l *DiscardLogger) Debugf(format string, args ...any) {}

// Fatalf implements Logger. On DiscardLogger this is a no-op.
func (l *DiscardLogger) Fatalf(format string, args ...any) {}
