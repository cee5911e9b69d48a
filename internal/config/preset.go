package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgnsrekt/vp/internal/engine"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
)

// ErrPresetConflict is returned when a preset is combined with an explicit
// narrator or emotion.
var ErrPresetConflict = errors.New("--preset cannot be combined with --narrator or --emotion")

// Preset is a named voice.
type Preset struct {
	Name     string           `mapstructure:"name"`
	Narrator string           `mapstructure:"narrator"`
	Emotions []engine.Emotion `mapstructure:"emotions"`
	Pitch    *int             `mapstructure:"pitch"`
	Speed    *int             `mapstructure:"speed"`
}

// EmotionString returns the emotion expression, or "normal" when empty.
func (p Preset) EmotionString() string {
	if len(p.Emotions) == 0 {
		return "normal"
	}
	return engine.FormatEmotions(p.Emotions)
}

func (p Preset) validate() error {
	if p.Pitch != nil {
		if err := ValidatePitch(*p.Pitch); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	if p.Speed != nil {
		if err := ValidateSpeed(*p.Speed); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return nil
}

// UnknownPresetError names a preset that does not exist.
type UnknownPresetError struct {
	Name       string
	Suggestion string
}

func (e *UnknownPresetError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown preset: %s (did you mean %q?)", e.Name, e.Suggestion)
	}
	return "unknown preset: " + e.Name
}

// Preset returns the preset called name.
func (c *Config) Preset(name string) (Preset, error) {
	names := make([]string, 0, len(c.Presets))
	for _, p := range c.Presets {
		if p.Name == name {
			return p, nil
		}
		names = append(names, p.Name)
	}

	err := &UnknownPresetError{Name: name}
	if matches := fuzzy.Find(name, names); len(matches) > 0 {
		err.Suggestion = matches[0].Str
	}
	return Preset{}, err
}

// Selection is the voice the user asked for on the command line. Nil and
// empty fields were not given.
type Selection struct {
	Preset   string
	Narrator string
	Emotion  string
	Speed    *int
	Pitch    *int
}

// Resolve turns a selection into a voice. An explicit preset wins, then an
// explicit narrator or emotion, then the default preset. Without a narrator
// from any of those, default_narrator is used. Speed and pitch given on the
// command line override the preset's.
func (c *Config) Resolve(sel Selection) (engine.Voice, error) {
	if sel.Preset != "" && (sel.Narrator != "" || sel.Emotion != "") {
		return engine.Voice{}, ErrPresetConflict
	}

	var voice engine.Voice
	name := sel.Preset
	if name == "" && sel.Narrator == "" && sel.Emotion == "" {
		name = c.DefaultPreset
	}

	if name != "" {
		p, err := c.Preset(name)
		if err != nil {
			return engine.Voice{}, err
		}
		voice = engine.Voice{
			Narrator: p.Narrator,
			Emotions: append([]engine.Emotion(nil), p.Emotions...),
			Speed:    p.Speed,
			Pitch:    p.Pitch,
		}
	} else {
		emotions, err := engine.ParseEmotions(sel.Emotion)
		if err != nil {
			return engine.Voice{}, err
		}
		voice = engine.Voice{Narrator: sel.Narrator, Emotions: emotions}
	}
	if voice.Narrator == "" {
		voice.Narrator = c.DefaultNarrator
	}

	if sel.Speed != nil {
		if err := ValidateSpeed(*sel.Speed); err != nil {
			return engine.Voice{}, err
		}
		voice.Speed = sel.Speed
	}
	if sel.Pitch != nil {
		if err := ValidatePitch(*sel.Pitch); err != nil {
			return engine.Voice{}, err
		}
		voice.Pitch = sel.Pitch
	}
	return voice, nil
}

// WritePresets prints the preset list, marking the default. Columns are
// aligned by display width so CJK narrator names line up.
func (c *Config) WritePresets(w io.Writer) {
	if len(c.Presets) == 0 {
		fmt.Fprintln(w, "No presets defined. Add some with `vp config`.")
		return
	}

	nameWidth, narratorWidth := 0, 0
	for _, p := range c.Presets {
		nameWidth = max(nameWidth, runewidth.StringWidth(p.Name))
		narratorWidth = max(narratorWidth, runewidth.StringWidth(p.Narrator))
	}

	fmt.Fprintln(w, "Available presets:")
	for _, p := range c.Presets {
		var extra []string
		if p.Pitch != nil {
			extra = append(extra, fmt.Sprintf("pitch=%d", *p.Pitch))
		}
		if p.Speed != nil {
			extra = append(extra, fmt.Sprintf("speed=%d", *p.Speed))
		}
		detail := p.EmotionString()
		if len(extra) > 0 {
			detail += ", " + strings.Join(extra, ", ")
		}
		marker := ""
		if p.Name == c.DefaultPreset {
			marker = " (default)"
		}
		fmt.Fprintf(w, "  %s  %s  (%s)%s\n",
			runewidth.FillRight(p.Name, nameWidth),
			runewidth.FillRight(p.Narrator, narratorWidth),
			detail, marker)
	}

	if c.DefaultPreset != "" {
		fmt.Fprintf(w, "\nDefault preset: %s\n", c.DefaultPreset)
	} else {
		fmt.Fprintln(w, "\nNo default preset set")
	}
}
