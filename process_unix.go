//go:build !windows

package main

import (
	"os"
	"syscall"
)

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks if the process exists without killing it.
	return proc.Signal(syscall.Signal(0)) == nil
}

func interrupt(p *os.Process) error {
	return p.Signal(os.Interrupt)
}
