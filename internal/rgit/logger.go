package rgit

// Logger is the structured logger used by the service layer. The args follow
// slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards all output.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}
