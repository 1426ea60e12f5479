//go:build !windows

package util

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that stop the agent.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// GracefulSignal asks a capture or encoder child to finish its output and exit.
func GracefulSignal(p *os.Process) error {
	if p == nil {
		return nil
	}
	return p.Signal(syscall.SIGINT)
}
