package isp

import "time"

// Programming phases reported in Progress.Phase.
const (
	PhaseEntering    = "entering"
	PhaseErasing     = "erasing"
	PhaseProgramming = "programming"
	PhaseFinishing   = "finishing"
	PhaseRefreshing  = "refreshing"
	PhaseComplete    = "complete"
)

// Progress contains information about the programming progress.
// Passed to ProgressCallback during loads and Program.
type Progress struct {
	// Phase describes the current operation phase:
	//   "entering"    - Entering configuration mode
	//   "erasing"     - Erasing and waiting for busy to clear
	//   "programming" - Writing pages
	//   "finishing"   - Program done and status read
	//   "refreshing"  - Reloading the new configuration
	//   "complete"    - Operation completed successfully
	Phase string

	// PagesWritten is the number of pages written so far
	PagesWritten int

	// Line is the source line of the last page written
	Line int

	// ElapsedTime is the time elapsed since the operation started
	ElapsedTime time.Duration
}

// ProgressCallback is called after every page and phase change.
// Implementations should return quickly to avoid blocking the programming operation.
type ProgressCallback func(Progress)

// DecodeErrorCallback receives each *bitstream.LineError or
// *bitstream.BlockError met during a load, in file order.
type DecodeErrorCallback func(error)

// Logger is an optional logging interface that can be provided to the programmer.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	prog, err := isp.Open(ctx, bus, isp.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
