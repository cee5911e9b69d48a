package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Emotion is one weighted emotional parameter, e.g. happy=50.
type Emotion struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Value int    `mapstructure:"value" yaml:"value"`
}

// String renders the emotion as name=value.
func (e Emotion) String() string {
	return e.Name + "=" + strconv.Itoa(e.Value)
}

// FormatEmotions joins emotions into the engine's comma separated form.
func FormatEmotions(emotions []Emotion) string {
	parts := make([]string, 0, len(emotions))
	for _, e := range emotions {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ",")
}

// ParseEmotions parses "happy=50,sad=20". An empty expression yields no
// emotions.
func ParseEmotions(expr string) ([]Emotion, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var emotions []Emotion
	for _, part := range strings.Split(expr, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q (want name=value)", ErrInvalidEmotion, part)
		}
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: value must be an integer", ErrInvalidEmotion, part)
		}
		emotions = append(emotions, Emotion{Name: name, Value: v})
	}
	return emotions, nil
}

// Voice is the part of a request shared by every chunk of one run.
type Voice struct {
	Narrator string
	Emotions []Emotion
	Speed    *int
	Pitch    *int
}

// Request is one immutable synthesis request. Build it with a Builder.
type Request struct {
	text     string
	narrator string
	emotions []Emotion
	speed    *int
	pitch    *int
	output   string
}

// Text returns the text to synthesize.
func (r Request) Text() string { return r.text }

// Narrator returns the narrator.
func (r Request) Narrator() string { return r.narrator }

// Emotion returns the serialized emotion expression.
func (r Request) Emotion() string { return FormatEmotions(r.emotions) }

// Output returns the destination artifact path.
func (r Request) Output() string { return r.output }

// Speed returns the speed and whether it was set.
func (r Request) Speed() (int, bool) {
	if r.speed == nil {
		return 0, false
	}
	return *r.speed, true
}

// Pitch returns the pitch and whether it was set.
func (r Request) Pitch() (int, bool) {
	if r.pitch == nil {
		return 0, false
	}
	return *r.pitch, true
}

// Args returns the engine command line. Unset optional fields are left out
// entirely.
func (r Request) Args() []string {
	args := []string{"-s", r.text, "-n", r.narrator}
	if len(r.emotions) > 0 {
		args = append(args, "-e", r.Emotion())
	}
	args = append(args, "-o", r.output)
	if v, ok := r.Speed(); ok {
		args = append(args, "--speed", strconv.Itoa(v))
	}
	if v, ok := r.Pitch(); ok {
		args = append(args, "--pitch", strconv.Itoa(v))
	}
	return args
}

// Builder accumulates the fields of a Request. It can be built once.
type Builder struct {
	req  Request
	used bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Text sets the text to synthesize.
func (b *Builder) Text(text string) *Builder {
	b.req.text = text
	return b
}

// Narrator sets the narrator.
func (b *Builder) Narrator(narrator string) *Builder {
	b.req.narrator = narrator
	return b
}

// Emotions sets the emotion expression. No emotions means the flag is
// omitted.
func (b *Builder) Emotions(emotions ...Emotion) *Builder {
	b.req.emotions = slices.Clone(emotions)
	return b
}

// Speed sets the speech speed.
func (b *Builder) Speed(speed int) *Builder {
	b.req.speed = &speed
	return b
}

// Pitch sets the pitch.
func (b *Builder) Pitch(pitch int) *Builder {
	b.req.pitch = &pitch
	return b
}

// Output sets the path the engine writes audio to.
func (b *Builder) Output(path string) *Builder {
	b.req.output = path
	return b
}

// Voice copies narrator, emotions, speed and pitch from v.
func (b *Builder) Voice(v Voice) *Builder {
	b.Narrator(v.Narrator)
	b.Emotions(v.Emotions...)
	if v.Speed != nil {
		b.Speed(*v.Speed)
	}
	if v.Pitch != nil {
		b.Pitch(*v.Pitch)
	}
	return b
}

// Build validates the accumulated fields and returns the request.
func (b *Builder) Build() (Request, error) {
	if b.used {
		return Request{}, ErrBuilderConsumed
	}
	if b.req.text == "" {
		return Request{}, ErrEmptyText
	}
	if b.req.narrator == "" {
		return Request{}, ErrNoNarrator
	}
	if b.req.output == "" {
		return Request{}, ErrNoOutput
	}
	b.used = true
	req := b.req
	b.req = Request{}
	return req, nil
}
