// Package envcheck reports whether the programs vp drives are installed.
package envcheck

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const probeTimeout = 5 * time.Second

// Status is the outcome of one check.
type Status struct {
	Name         string
	Required     bool
	Installed    bool
	Version      string
	Path         string
	Instructions string
}

// Checker checks a single dependency.
type Checker interface {
	Check(ctx context.Context) Status
}

// Report holds the results of a set of checks, in the order they ran.
type Report struct {
	Results []Status
}

// Run runs every checker.
func Run(ctx context.Context, checkers ...Checker) *Report {
	r := &Report{}
	for _, c := range checkers {
		s := c.Check(ctx)
		if s.Installed {
			log.Debug("Dependency found", "name", s.Name, "version", s.Version, "path", s.Path)
		} else {
			log.Debug("Dependency missing", "name", s.Name, "required", s.Required)
		}
		r.Results = append(r.Results, s)
	}
	return r
}

// Err reports every missing required dependency.
func (r *Report) Err() error {
	var missing []string
	for _, s := range r.Results {
		if s.Required && !s.Installed {
			missing = append(missing, s.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1)
	installedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	missingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	optionalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// String renders the report for a terminal.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("vp environment check"))
	b.WriteString("\n\n")

	for _, s := range r.Results {
		switch {
		case s.Installed:
			b.WriteString(installedStyle.Render("  ✓ " + s.Name + ": "))
			b.WriteString(strings.TrimSpace(s.Path + " " + s.Version))
			b.WriteString("\n")
		case s.Required:
			b.WriteString(missingStyle.Render("  ✗ " + s.Name + ": "))
			b.WriteString("Not installed\n")
		default:
			b.WriteString(optionalStyle.Render("  ○ " + s.Name + ": "))
			b.WriteString("Not installed (optional)\n")
		}
		if !s.Installed && s.Instructions != "" {
			b.WriteString("    " + s.Instructions + "\n")
		}
	}
	return b.String()
}

// Platform checks that vp runs on macOS, where VOICEPEAK's CLI lives.
type Platform struct{}

// Check implements Checker.
func (Platform) Check(context.Context) Status {
	return Status{
		Name:         "macOS",
		Required:     false,
		Installed:    runtime.GOOS == "darwin",
		Version:      runtime.GOOS + "/" + runtime.GOARCH,
		Instructions: "VOICEPEAK's command-line interface is only available on macOS",
	}
}

// Engine checks for the VOICEPEAK executable.
type Engine struct {
	Path string
}

// ErrEngineMissing is returned by RequireEngine.
var ErrEngineMissing = errors.New("VOICEPEAK is not installed")

// Check implements Checker.
func (e Engine) Check(context.Context) Status {
	s := Status{Name: "voicepeak", Required: true}
	path, err := exec.LookPath(e.Path)
	if err != nil {
		s.Instructions = "Install VOICEPEAK from the official website. Expected path: " + e.Path
		return s
	}
	s.Installed = true
	s.Path = path
	return s
}

// RequireEngine fails when the engine at path is missing.
func RequireEngine(path string) error {
	if _, err := os.Stat(path); err != nil {
		if _, lerr := exec.LookPath(path); lerr != nil {
			return fmt.Errorf("%w (expected at %s)", ErrEngineMissing, path)
		}
	}
	return nil
}

// Command checks for a program on PATH and reads its version.
type Command struct {
	Name         string
	Binary       string
	VersionArgs  []string
	Required     bool
	Instructions string
}

// Check implements Checker.
func (c Command) Check(ctx context.Context) Status {
	s := Status{Name: c.Name, Required: c.Required}
	path, err := exec.LookPath(c.Binary)
	if err != nil {
		s.Instructions = c.Instructions
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, c.VersionArgs...).CombinedOutput() //nolint:gosec
	if err != nil {
		s.Instructions = c.Instructions
		return s
	}

	s.Installed = true
	s.Path = path
	s.Version = parseVersion(string(out))
	return s
}

// parseVersion picks the version from the first line of output such as
// "ffmpeg version 6.1.1 Copyright" or "mpv 0.37.0 Copyright".
func parseVersion(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	if len(fields) >= 2 {
		return fields[1]
	}
	return ""
}

// FFmpeg returns a checker for the merge tool.
func FFmpeg(binary string, required bool) Command {
	return Command{
		Name:         "ffmpeg",
		Binary:       binary,
		VersionArgs:  []string{"-version"},
		Required:     required,
		Instructions: installHint("ffmpeg"),
	}
}

// Player returns a checker for an external audio player.
func Player(binary string) Command {
	return Command{
		Name:         binary,
		Binary:       binary,
		VersionArgs:  []string{"--version"},
		Required:     true,
		Instructions: installHint(binary),
	}
}

func installHint(pkg string) string {
	switch runtime.GOOS {
	case "darwin":
		return "Install with: brew install " + pkg
	case "linux":
		return "Install with your package manager: " + pkg
	default:
		return "Install " + pkg + " and add it to PATH"
	}
}
