package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/vp/internal/audio"
	"github.com/dgnsrekt/vp/internal/engine"
)

// fakeSynth writes "audio:<text>" to each request's output.
type fakeSynth struct {
	texts   []string
	outputs []string
	failAt  int // 1-based call that fails; 0 never
}

func (f *fakeSynth) Invoke(_ context.Context, req engine.Request) error {
	f.texts = append(f.texts, req.Text())
	f.outputs = append(f.outputs, req.Output())
	if len(f.texts) == f.failAt {
		return errors.New("VOICEPEAK command failed after 3 attempts: exit status 1")
	}
	return os.WriteFile(req.Output(), []byte("audio:"+req.Text()), 0o600)
}

// fakeMerger joins inputs with "|" and records calls.
type fakeMerger struct {
	checks    int
	merges    [][]string
	available error
	mergeErr  error
}

func (f *fakeMerger) Available(context.Context) error {
	f.checks++
	return f.available
}

func (f *fakeMerger) Merge(_ context.Context, inputs []string, output string) error {
	f.merges = append(f.merges, inputs)
	if f.mergeErr != nil {
		return f.mergeErr
	}
	var parts []string
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		parts = append(parts, string(data))
	}
	return os.WriteFile(output, []byte(strings.Join(parts, "|")), 0o600)
}

type harness struct {
	synth  *fakeSynth
	player *audio.MockPlayer
	merger *fakeMerger
	out    *bytes.Buffer
	ws     []*audio.Workspace
	p      *Pipeline
}

func newHarness() *harness {
	h := &harness{
		synth:  &fakeSynth{},
		player: audio.NewMockPlayer(audio.MockCallbacks{}),
		merger: &fakeMerger{},
		out:    &bytes.Buffer{},
	}
	h.p = New(h.synth, h.player, h.merger, h.out)
	h.p.newWorkspace = func() (*audio.Workspace, error) {
		ws, err := audio.NewWorkspace()
		h.ws = append(h.ws, ws)
		return ws, err
	}
	return h
}

func (h *harness) assertCleanedUp(t *testing.T) {
	t.Helper()
	for _, ws := range h.ws {
		if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
			t.Errorf("workspace %s not removed", ws.Dir())
		}
	}
	for _, out := range h.synth.outputs {
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Errorf("artifact %s not removed", out)
		}
	}
}

var voice = engine.Voice{Narrator: "Japanese Female 1"}

func TestRun_SequentialPlaysEachInOrder(t *testing.T) {
	h := newHarness()
	chunks := []string{"one.", "two.", "three."}

	if err := h.p.Run(context.Background(), chunks, voice, Sequential, Play()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	contents := h.player.Contents()
	if len(contents) != 3 {
		t.Fatalf("played %d parts, want 3", len(contents))
	}
	for i, c := range chunks {
		if string(contents[i]) != "audio:"+c {
			t.Errorf("part %d played %q", i, contents[i])
		}
	}
	if h.merger.checks != 0 || len(h.merger.merges) != 0 {
		t.Error("sequential playback should not merge")
	}
	for i := 1; i <= 3; i++ {
		if !strings.Contains(h.out.String(), "Playing part "+string(rune('0'+i))+"/3") {
			t.Errorf("missing progress for part %d:\n%s", i, h.out)
		}
	}
	h.assertCleanedUp(t)
}

func TestRun_SingleChunkHasNoProgress(t *testing.T) {
	h := newHarness()
	if err := h.p.Run(context.Background(), []string{"hi"}, voice, Sequential, Play()); err != nil {
		t.Fatal(err)
	}
	if h.out.Len() != 0 {
		t.Errorf("unexpected output %q", h.out)
	}
}

func TestRun_SequentialAbortsOnFailure(t *testing.T) {
	h := newHarness()
	h.synth.failAt = 2

	err := h.p.Run(context.Background(), []string{"a", "b", "c"}, voice, Sequential, Play())
	var pe *Error
	if !errors.As(err, &pe) || pe.Part != 2 || pe.Total != 3 {
		t.Fatalf("error = %v, want part 2/3", err)
	}
	if len(h.synth.texts) != 2 {
		t.Errorf("synthesized %d chunks after failure, want 2", len(h.synth.texts))
	}
	if len(h.player.Played()) != 1 {
		t.Errorf("played %d parts, want 1", len(h.player.Played()))
	}
	h.assertCleanedUp(t)
}

func TestRun_SequentialPlaybackFailureCleansUp(t *testing.T) {
	h := newHarness()
	h.player.FailOn(1, audio.ErrMockPlayback)

	err := h.p.Run(context.Background(), []string{"a", "b"}, voice, Sequential, Play())
	var playErr *audio.PlaybackError
	if !errors.As(err, &playErr) {
		t.Fatalf("error = %v, want PlaybackError", err)
	}
	if len(h.synth.texts) != 1 {
		t.Errorf("later chunks should not be synthesized")
	}
	h.assertCleanedUp(t)
}

func TestRun_BatchMergesThenPlaysOnce(t *testing.T) {
	h := newHarness()
	chunks := []string{"a", "b", "c"}

	if err := h.p.Run(context.Background(), chunks, voice, Batch, Play()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if h.merger.checks != 1 {
		t.Errorf("availability checks = %d, want 1", h.merger.checks)
	}
	if len(h.merger.merges) != 1 || len(h.merger.merges[0]) != 3 {
		t.Fatalf("merges = %q", h.merger.merges)
	}
	for i, in := range h.merger.merges[0] {
		if in != h.synth.outputs[i] {
			t.Errorf("merge input %d = %s, want %s", i, in, h.synth.outputs[i])
		}
	}
	contents := h.player.Contents()
	if len(contents) != 1 || string(contents[0]) != "audio:a|audio:b|audio:c" {
		t.Errorf("played %q", contents)
	}
	h.assertCleanedUp(t)
}

func TestRun_BatchRemovesPartsBeforePlayback(t *testing.T) {
	h := newHarness()
	var during []string
	h.player = audio.NewMockPlayer(audio.MockCallbacks{
		OnPlay: func(path string, _ []byte) {
			entries, err := os.ReadDir(filepath.Dir(path))
			if err != nil {
				t.Errorf("ReadDir() error = %v", err)
				return
			}
			for _, e := range entries {
				during = append(during, e.Name())
			}
		},
	})
	h.p.player = h.player

	if err := h.p.Run(context.Background(), []string{"a", "b", "c"}, voice, Batch, Play()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(during) != 1 || during[0] != "merged.wav" {
		t.Errorf("workspace during playback = %q, want only merged.wav", during)
	}
	h.assertCleanedUp(t)
}

func TestRun_PreflightFailsBeforeSynthesis(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		mode   Mode
		dest   Destination
	}{
		{name: "batch", chunks: []string{"a"}, mode: Batch, dest: Play()},
		{name: "file with parts", chunks: []string{"a", "b"}, mode: Sequential, dest: SaveTo("out.wav")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.merger.available = errors.New("ffmpeg not found")

			if err := h.p.Run(context.Background(), tt.chunks, voice, tt.mode, tt.dest); err == nil {
				t.Fatal("Run() should fail")
			}
			if len(h.synth.texts) != 0 {
				t.Errorf("synthesized %d chunks before failing", len(h.synth.texts))
			}
		})
	}
}

func TestRun_SingleChunkSaveSkipsPreflight(t *testing.T) {
	h := newHarness()
	h.merger.available = errors.New("ffmpeg not found")
	out := filepath.Join(t.TempDir(), "out.wav")

	if err := h.p.Run(context.Background(), []string{"only"}, voice, Sequential, SaveTo(out)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if h.merger.checks != 0 {
		t.Error("single-chunk save should not check the merge tool")
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "audio:only" {
		t.Errorf("saved %q, %v", data, err)
	}
	if len(h.player.Played()) != 0 {
		t.Error("saving should not play")
	}
	h.assertCleanedUp(t)
}

func TestRun_SaveKeepsFileAndCleansParts(t *testing.T) {
	h := newHarness()
	out := filepath.Join(t.TempDir(), "speech.wav")

	if err := h.p.Run(context.Background(), []string{"a", "b"}, voice, Sequential, SaveTo(out)); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "audio:a|audio:b" {
		t.Errorf("saved %q", data)
	}
	if !strings.Contains(h.out.String(), "Saved to "+out) {
		t.Errorf("output = %q", h.out)
	}
	h.assertCleanedUp(t)
}

func TestRun_BatchFailureCleansEarlierParts(t *testing.T) {
	h := newHarness()
	h.synth.failAt = 3

	err := h.p.Run(context.Background(), []string{"a", "b", "c", "d"}, voice, Batch, Play())
	var pe *Error
	if !errors.As(err, &pe) || pe.Part != 3 {
		t.Fatalf("error = %v, want part 3", err)
	}
	if len(h.merger.merges) != 0 || len(h.player.Played()) != 0 {
		t.Error("nothing should be merged or played")
	}
	h.assertCleanedUp(t)
}

func TestRun_MergeFailure(t *testing.T) {
	h := newHarness()
	h.merger.mergeErr = errors.New("concat failed")

	if err := h.p.Run(context.Background(), []string{"a", "b"}, voice, Batch, Play()); err == nil {
		t.Fatal("Run() should fail")
	}
	if len(h.player.Played()) != 0 {
		t.Error("nothing should be played")
	}
	h.assertCleanedUp(t)
}

func TestRun_NoChunks(t *testing.T) {
	h := newHarness()
	if err := h.p.Run(context.Background(), nil, voice, Batch, Play()); !errors.Is(err, ErrNoChunks) {
		t.Errorf("error = %v, want ErrNoChunks", err)
	}
}

func TestRun_RequestCarriesVoice(t *testing.T) {
	h := newHarness()
	speed := 120
	v := engine.Voice{
		Narrator: "Japanese Male 1",
		Emotions: []engine.Emotion{{Name: "happy", Value: 50}},
		Speed:    &speed,
	}
	var got engine.Request
	synth := &recordingSynth{fn: func(r engine.Request) { got = r }}
	p := New(synth, h.player, h.merger, nil)

	if err := p.Run(context.Background(), []string{"hi"}, v, Sequential, Play()); err != nil {
		t.Fatal(err)
	}
	if got.Narrator() != "Japanese Male 1" || got.Emotion() != "happy=50" {
		t.Errorf("request = %q", got.Args())
	}
	if s, ok := got.Speed(); !ok || s != 120 {
		t.Errorf("speed = %d, %v", s, ok)
	}
	if !strings.HasSuffix(got.Output(), ".wav") {
		t.Errorf("artifact %s should have a .wav extension", got.Output())
	}
}

type recordingSynth struct {
	fn func(engine.Request)
}

func (r *recordingSynth) Invoke(_ context.Context, req engine.Request) error {
	r.fn(req)
	return os.WriteFile(req.Output(), []byte("x"), 0o600)
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{"": Sequential, "sequential": Sequential, "Batch": Batch}
	for in, want := range tests {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("shuffle"); err == nil {
		t.Error("ParseMode(shuffle) should fail")
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("あ", 50)
	if got := preview(long); !strings.HasSuffix(got, "…") || len([]rune(got)) >= 50 {
		t.Errorf("preview(long) = %q", got)
	}
	if got := preview("a\n  b"); got != "a b" {
		t.Errorf("preview() = %q", got)
	}
}
