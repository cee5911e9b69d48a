package engine

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuilder_Args(t *testing.T) {
	speed, pitch := 120, -50

	tests := []struct {
		name  string
		build func() *Builder
		want  []string
	}{
		{
			name: "required fields only",
			build: func() *Builder {
				return NewBuilder().Text("こんにちは").Narrator("夏色花梨").Output("/tmp/a.wav")
			},
			want: []string{"-s", "こんにちは", "-n", "夏色花梨", "-o", "/tmp/a.wav"},
		},
		{
			name: "every field",
			build: func() *Builder {
				return NewBuilder().
					Text("hello").
					Narrator("夏色花梨").
					Emotions(Emotion{"hightension", 50}, Emotion{"sasayaki", 10}).
					Output("out.wav").
					Speed(speed).
					Pitch(pitch)
			},
			want: []string{
				"-s", "hello",
				"-n", "夏色花梨",
				"-e", "hightension=50,sasayaki=10",
				"-o", "out.wav",
				"--speed", "120",
				"--pitch", "-50",
			},
		},
		{
			name: "voice template",
			build: func() *Builder {
				return NewBuilder().
					Voice(Voice{Narrator: "Japanese Female 1", Pitch: &pitch}).
					Text("x").
					Output("o.wav")
			},
			want: []string{"-s", "x", "-n", "Japanese Female 1", "-o", "o.wav", "--pitch", "-50"},
		},
		{
			name: "empty emotion list is omitted",
			build: func() *Builder {
				return NewBuilder().Text("x").Narrator("n").Emotions().Output("o.wav")
			},
			want: []string{"-s", "x", "-n", "n", "-o", "o.wav"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.build().Build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := req.Args(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		wantErr error
	}{
		{"missing text", NewBuilder().Narrator("n").Output("o.wav"), ErrEmptyText},
		{"missing narrator", NewBuilder().Text("x").Output("o.wav"), ErrNoNarrator},
		{"empty voice narrator", NewBuilder().Voice(Voice{}).Text("x").Output("o.wav"), ErrNoNarrator},
		{"missing output", NewBuilder().Text("x").Narrator("n"), ErrNoOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuilder_ConsumedOnce(t *testing.T) {
	b := NewBuilder().Text("x").Narrator("n").Output("o.wav")
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	if _, err := b.Build(); !errors.Is(err, ErrBuilderConsumed) {
		t.Errorf("second Build() error = %v, want ErrBuilderConsumed", err)
	}
}

func TestBuilder_RequestIsIsolated(t *testing.T) {
	emotions := []Emotion{{"happy", 10}}
	v := Voice{Narrator: "n", Emotions: emotions}

	req, err := NewBuilder().Voice(v).Text("x").Output("o.wav").Build()
	if err != nil {
		t.Fatal(err)
	}
	emotions[0].Value = 99

	if got := req.Emotion(); got != "happy=10" {
		t.Errorf("Emotion() = %q after caller mutation, want happy=10", got)
	}
	if _, ok := req.Speed(); ok {
		t.Error("Speed() reported set on a request without speed")
	}
}

func TestParseEmotions(t *testing.T) {
	tests := []struct {
		expr    string
		want    []Emotion
		wantErr bool
	}{
		{"", nil, false},
		{"happy=50", []Emotion{{"happy", 50}}, false},
		{" happy = 50 , sad=20 ", []Emotion{{"happy", 50}, {"sad", 20}}, false},
		{"happy", nil, true},
		{"=50", nil, true},
		{"happy=lots", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseEmotions(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEmotions(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidEmotion) {
				t.Errorf("ParseEmotions(%q) error = %v, want ErrInvalidEmotion", tt.expr, err)
			}
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseEmotions(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestFormatEmotions(t *testing.T) {
	got := FormatEmotions([]Emotion{{"a", 1}, {"b", -2}})
	if got != "a=1,b=-2" {
		t.Errorf("FormatEmotions() = %q", got)
	}
	if got := FormatEmotions(nil); got != "" {
		t.Errorf("FormatEmotions(nil) = %q, want empty", got)
	}
}
