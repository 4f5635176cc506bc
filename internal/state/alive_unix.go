//go:build !windows

package state

import "syscall"

// processAlive reports whether a process with the given PID exists.
// Signal 0 checks existence and permission without delivering anything.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
