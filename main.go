// Package main provides the entry point for the vp CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/vp/internal/chunk"
	"github.com/dgnsrekt/vp/internal/config"
	"github.com/dgnsrekt/vp/internal/input"
	"github.com/dgnsrekt/vp/internal/pipeline"
	"github.com/dgnsrekt/vp/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	say          string
	textFile     string
	outFile      string
	narrator     string
	emotion      string
	preset       string
	speed        int
	pitch        int
	strictLength bool
	batch        bool
	verbose      bool
	useClipboard bool
	markdown     bool
	encoding     string
	debug        bool

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "vp",
		Short: "Speak text with VOICEPEAK",
		Long: paragraph(
			fmt.Sprintf("\nSpeak text with VOICEPEAK, %s.", keyword("any length, any voice")),
		),
		Example: paragraph("vp -s こんにちは\nvp -t speech.txt -p karin-happy\ncat notes.md | vp --markdown --batch -o notes.wav"),
		SilenceErrors:    true,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	setupStyles()
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(utils.ExpandPath(configFile))
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = c

	if cmd.Flags().Changed("speed") {
		if err := config.ValidateSpeed(speed); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("pitch") {
		if err := config.ValidatePitch(pitch); err != nil {
			return err
		}
	}
	if _, err := pipeline.ParseMode(cfg.Playback.Mode); err != nil {
		return err
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, _ []string) error {
	piped, err := stdinIsPipe()
	if err != nil {
		return err
	}

	text, err := input.Read(input.Options{
		Say:        say,
		File:       textFile,
		Clipboard:  useClipboard,
		Encoding:   encoding,
		Markdown:   markdown,
		Stdin:      os.Stdin,
		StdinPiped: piped,
	})
	if err != nil {
		return err
	}

	dest := pipeline.Play()
	if outFile != "" {
		dest = pipeline.SaveTo(utils.ExpandPath(outFile))
	}
	return speak(cmd.Context(), cmd, text, dest)
}

// speak splits text and runs it through the pipeline with the voice and
// mode selected by flags and config.
func speak(ctx context.Context, cmd *cobra.Command, text string, dest pipeline.Destination) error {
	sel := config.Selection{Preset: preset, Narrator: narrator, Emotion: emotion}
	if cmd.Flags().Changed("speed") {
		sel.Speed = &speed
	}
	if cmd.Flags().Changed("pitch") {
		sel.Pitch = &pitch
	}
	voice, err := cfg.Resolve(sel)
	if err != nil {
		return err
	}

	if strictLength && !chunk.CheckLength(text, cfg.MaxChars) {
		return fmt.Errorf(
			"input text is too long (%d characters), maximum allowed is %d characters; use without --strict-length to enable automatic splitting",
			chunk.Len(text), cfg.MaxChars)
	}

	splitter, err := chunk.NewSplitter(cfg.MaxChars)
	if err != nil {
		return err
	}
	chunks := splitter.Split(text)
	if len(chunks) > 1 {
		fmt.Printf("Text is too long, splitting into %d parts...\n", len(chunks))
	}

	mode, err := pipeline.ParseMode(cfg.Playback.Mode)
	if err != nil {
		return err
	}
	if batch {
		mode = pipeline.Batch
	}

	p, closer, err := newPipeline(cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closer()

	log.Info("Speaking", "chars", chunk.Len(text), "parts", len(chunks), "mode", mode, "narrator", voice.Narrator)
	return p.Run(ctx, chunks, voice, mode, dest)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		log.Error("Command failed", "err", err)
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug output to the log file")
	rootCmd.Flags().StringVarP(&say, "say", "s", "", "text to say")
	rootCmd.Flags().StringVarP(&textFile, "text", "t", "", "text file to say (- for stdin)")
	rootCmd.Flags().StringVarP(&outFile, "out", "o", "", "save to this file instead of playing")
	rootCmd.Flags().StringVarP(&narrator, "narrator", "n", "", "name of voice")
	rootCmd.Flags().StringVarP(&emotion, "emotion", "e", "", "emotion expression (e.g. happy=50,sad=50)")
	rootCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a voice preset (see vp presets)")
	rootCmd.Flags().IntVar(&speed, "speed", 100, fmt.Sprintf("speed (%d - %d)", config.MinSpeed, config.MaxSpeed))
	rootCmd.Flags().IntVar(&pitch, "pitch", 0, fmt.Sprintf("pitch (%d - %d)", config.MinPitch, config.MaxPitch))
	rootCmd.Flags().BoolVar(&strictLength, "strict-length", false, "reject input longer than max_chars instead of splitting it")
	rootCmd.Flags().BoolVar(&batch, "batch", false, "synthesize every part, then play them as one")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show VOICEPEAK output")
	rootCmd.Flags().BoolVar(&useClipboard, "clipboard", false, "say the clipboard contents")
	rootCmd.Flags().BoolVar(&markdown, "markdown", false, "strip markdown formatting before speaking")
	rootCmd.Flags().StringVar(&encoding, "encoding", "auto", "input encoding (auto, utf-8, shift_jis, euc-jp, iso-2022-jp, utf-16le, utf-16be)")
	rootCmd.Flags().Bool("cache", false, "reuse previously synthesized audio")
	rootCmd.MarkFlagsMutuallyExclusive("say", "text", "clipboard")
	rootCmd.MarkFlagsMutuallyExclusive("preset", "narrator")
	rootCmd.MarkFlagsMutuallyExclusive("preset", "emotion")

	// Config bindings
	_ = viper.BindPFlag("cache.enabled", rootCmd.Flags().Lookup("cache"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(configCmd, manCmd, presetsCmd, narratorsCmd, emotionsCmd, doctorCmd, watchCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	e, err := config.ReadEnv()
	if err != nil {
		log.Warn("Could not parse environment", "err", err)
	}
	dirs, err := config.ConfigDirs(e)
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], config.AppName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
