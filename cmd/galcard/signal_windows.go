// Shutdown signals on Windows. SIGTERM does not exist there; the runtime maps
// Ctrl+C, Ctrl+Break, and console close to os.Interrupt.

//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// signalContext returns a context cancelled on os.Interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
