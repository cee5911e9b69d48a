package config

import (
	"github.com/dgnsrekt/vp/internal/engine"
	"github.com/mattn/go-runewidth"
)

func formatEmotion(e []engine.Emotion) string { return engine.FormatEmotions(e) }

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func displayWidth(s string) int { return runewidth.StringWidth(s) }
