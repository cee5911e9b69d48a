package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/shirou/gopsutil/v3/process"
)

// reapFunc kills leftover engine processes and reports how many it found.
type reapFunc func(ctx context.Context, binary string) int

// reapStrays kills every process whose executable name matches binary. A
// failed attempt can leave the engine hung in the background, holding its
// audio device.
func reapStrays(ctx context.Context, binary string) int {
	name := filepath.Base(binary)
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		log.Debug("Could not list processes", "error", err)
		return 0
	}

	self := int32(os.Getpid())
	killed := 0
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		pname, err := p.NameWithContext(ctx)
		if err != nil || !strings.EqualFold(pname, name) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			log.Debug("Could not kill stray engine", "pid", p.Pid, "error", err)
			continue
		}
		log.Info("Killed stray engine process", "pid", p.Pid, "name", pname)
		killed++
	}
	return killed
}
