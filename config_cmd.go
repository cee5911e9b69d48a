package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# preset used when neither --preset nor --narrator/--emotion is given
default_preset: ""

# narrator used when no preset or --narrator picks one
default_narrator: 夏色花梨

# named voices, selected with --preset
presets: []
#  - name: karin-normal
#    narrator: 夏色花梨
#  - name: karin-happy
#    narrator: 夏色花梨
#    emotions:
#      - name: hightension
#        value: 50
#    pitch: 20     # -300 to 300
#    speed: 110    # 50 to 200

engine:
  # VOICEPEAK executable
  path: "/Applications/voicepeak.app/Contents/MacOS/voicepeak"
  # time allowed for a single attempt
  timeout: 15s
  # attempts per part before giving up
  attempts: 10
  # fixed pause between attempts
  backoff: 5s
  # lock file serializing VOICEPEAK runs (default: next to this file)
  # lock: "~/.config/vp/vp.lock"

player:
  # "command" runs the command below; "native" plays in-process
  backend: command
  command: "mpv --no-video --really-quiet"

merge:
  ffmpeg: "ffmpeg"
  # silence inserted between parts
  silence: 1s

playback:
  # sequential: play each part as it is ready
  # batch: merge all parts, then play once
  mode: sequential

# longest text sent to VOICEPEAK at once
max_chars: 140

cache:
  # reuse audio for text already spoken with the same voice
  enabled: false
  # dir: "~/.cache/vp/audio"
  # size limit in MB
  max_size: 512
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the vp config file",
	Long:    paragraph(fmt.Sprintf("\n%s the vp config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("vp config\nvp config --config path/to/vp.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("vp", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
