// Package panichandler is the only sanctioned way app/core/lz4stream
// starts a worker goroutine. A panic inside one worker's compression or
// decompression task must not take the whole process down — it must
// surface as a JobUnknown stream error instead, which is what
// blockBuffer.run's use of SafeGoWithCallback relies on.
package panichandler

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/lz4pack/lz4pack/app/paniclogger"
)

// PanicHandler recovers a panic on the calling goroutine in its simplest
// form. Usage: defer panichandler.PanicHandler()
func PanicHandler() {
	if r := recover(); r != nil {
		stackTrace := debug.Stack()
		paniclogger.LogPanic("unknown context", r, string(stackTrace))
		slog.Error("caught panic",
			slog.Any("error", r),
			slog.String("stack", string(stackTrace)),
		)
	}
}

// SafeGo starts fn on a new goroutine; a panic inside fn is recovered and
// logged instead of crashing the process.
func SafeGo(context string, fn func()) {
	go func() {
		defer recoverGoroutine(fmt.Sprintf("goroutine: %s", context), nil)
		fn()
	}()
}

// SafeGoWithCallback starts fn on a new goroutine. If fn panics, callback
// runs afterward (e.g. to unblock a channel a waiter is listening on) —
// blockBuffer.run uses this to close its done channel even when the task
// panicked.
func SafeGoWithCallback(context string, fn func(), callback func()) {
	go func() {
		defer recoverGoroutine(fmt.Sprintf("goroutine: %s", context), callback)
		fn()
	}()
}

func recoverGoroutine(context string, callback func()) {
	if r := recover(); r != nil {
		stackTrace := debug.Stack()
		paniclogger.LogPanic(context, r, string(stackTrace))
		slog.Error("goroutine panic caught (app continues running)",
			slog.String("context", context),
			slog.Any("error", r),
			slog.String("stack", string(stackTrace)),
		)
		if callback != nil {
			defer func() {
				if r2 := recover(); r2 != nil {
					slog.Error("panic in goroutine panic callback",
						slog.String("original_context", context),
						slog.Any("callback_error", r2),
					)
				}
			}()
			callback()
		}
	}
}
