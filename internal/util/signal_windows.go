//go:build windows

package util

import "os"

// ShutdownSignals returns the signals that stop the agent.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// GracefulSignal is a no-op on Windows. Children stop when their stdin
// closes or when WaitDelay kills them.
func GracefulSignal(_ *os.Process) error {
	return nil
}
