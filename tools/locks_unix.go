//go:build unix

package tools

import "syscall"

// isProcessRunning checks if a process with given PID is running on Unix systems
func isProcessRunning(pid int) bool {
	// Signal 0 probes for existence without delivering a signal
	err := syscall.Kill(pid, syscall.Signal(0))

	if err == nil {
		return true
	}

	if err == syscall.ESRCH {
		// No such process
		return false
	}

	if err == syscall.EPERM {
		// Process exists but belongs to another user; still counts as running
		return true
	}

	return false
}
