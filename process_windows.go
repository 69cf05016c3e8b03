//go:build windows

package main

import "os"

// FindProcess opens a handle on windows and fails for unknown pids.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	proc.Release()
	return true
}

// Windows has no SIGINT for child processes.
func interrupt(p *os.Process) error {
	return p.Kill()
}
