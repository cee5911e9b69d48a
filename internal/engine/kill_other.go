//go:build !unix

package engine

import (
	"os"

	"github.com/charmbracelet/log"
)

func killPID(pid int) {
	p, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := p.Kill(); err != nil {
		log.Error("Failed to kill engine process", "pid", pid, "error", err)
	}
}
