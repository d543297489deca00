// internal/recovery/recovery.go
package recovery

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// HandlePanic should be deferred at the top of main().
// It prints panic details to stderr and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		os.Exit(1)
	}
}

// HandlePanicFunc prints panic details, calls cleanup, and exits with code 1.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}

// LogPanic is HandlePanicFunc for goroutines that own a logger. The panic
// value and stack are written as a single error record before cleanup runs.
//
//	go func() {
//		defer recovery.LogPanic(log, func() { _ = capture.Close() })
//		mon.Run(ctx, capture.Frames)
//	}()
func LogPanic(log zerolog.Logger, cleanup func()) {
	if r := recover(); r != nil {
		log.Error().
			Str("panic", fmt.Sprint(r)).
			Bytes("stack", debug.Stack()).
			Msg("FATAL: goroutine panic")
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}
