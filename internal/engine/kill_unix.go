//go:build unix

package engine

import (
	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

// killPID sends SIGKILL to pid.
func killPID(pid int) {
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		log.Error("Failed to kill engine process", "pid", pid, "error", err)
		return
	}
	log.Debug("Killed engine process", "pid", pid)
}
