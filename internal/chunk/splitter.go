package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// MaxChars is the largest number of characters VOICEPEAK accepts in a single
// synthesis request.
const MaxChars = 140

// ErrInvalidBudget is returned when a splitter is configured with a character
// budget that cannot hold a single character.
var ErrInvalidBudget = errors.New("character budget must be at least 1")

// sentenceEndings close a sentence.
var sentenceEndings = map[rune]bool{
	'。': true,
	'！': true,
	'？': true,
	'.': true,
	'!': true,
	'?': true,
}

// breakPoints are the natural places to cut a sentence that does not fit.
var breakPoints = map[rune]bool{
	'、': true,
	'，': true,
	',': true,
	' ': true,
	'　': true,
}

// Splitter breaks text into chunks no longer than a fixed number of
// characters, preferring sentence boundaries and then commas or spaces.
type Splitter struct {
	maxChars int
}

// NewSplitter returns a splitter with the given character budget.
func NewSplitter(maxChars int) (*Splitter, error) {
	if maxChars < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBudget, maxChars)
	}
	return &Splitter{maxChars: maxChars}, nil
}

// MaxChars returns the splitter's character budget.
func (s *Splitter) MaxChars() int {
	return s.maxChars
}

// Split splits text using the default MaxChars budget.
func Split(text string) []string {
	s := &Splitter{maxChars: MaxChars}
	return s.Split(text)
}

// CheckLength reports whether text fits in a single request of maxChars
// characters.
func CheckLength(text string, maxChars int) bool {
	return Len(text) <= maxChars
}

// Len counts characters the way the engine does: Unicode code points, not
// bytes.
func Len(text string) int {
	return len([]rune(text))
}

// Split breaks text into ordered chunks. Text that already fits is returned
// as a single chunk, untouched.
func (s *Splitter) Split(text string) []string {
	if Len(text) <= s.maxChars {
		return []string{text}
	}

	var (
		chunks  []string
		current []rune
	)

	flush := func() {
		if trimmed := strings.TrimSpace(string(current)); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		current = nil
	}

	for _, sentence := range splitSentences(text) {
		if len(current)+len(sentence) <= s.maxChars {
			current = append(current, sentence...)
			continue
		}

		if len(current) > 0 {
			flush()
		}

		if len(sentence) <= s.maxChars {
			current = append(current, sentence...)
			continue
		}

		parts := s.splitLongSentence(sentence)
		for i, part := range parts {
			if i == len(parts)-1 {
				current = append(current, part...)
				break
			}
			if trimmed := strings.TrimSpace(string(part)); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
		}
	}

	flush()
	return chunks
}

// splitSentences cuts text after every sentence ending. A trailing fragment
// without an ending is kept when it holds more than whitespace.
func splitSentences(text string) [][]rune {
	var (
		sentences [][]rune
		current   []rune
	)
	for _, r := range text {
		current = append(current, r)
		if sentenceEndings[r] {
			sentences = append(sentences, current)
			current = nil
		}
	}
	if strings.TrimSpace(string(current)) != "" {
		sentences = append(sentences, current)
	}
	return sentences
}

// splitLongSentence cuts a sentence that exceeds the budget. Each piece ends
// at the last break point seen before the budget ran out; a piece with no
// break point at all is cut hard at the budget.
func (s *Splitter) splitLongSentence(sentence []rune) [][]rune {
	var (
		pieces  [][]rune
		current []rune
	)
	for _, r := range sentence {
		current = append(current, r)
		if len(current) < s.maxChars {
			continue
		}

		if breakPoints[r] {
			pieces = append(pieces, current)
			current = nil
			continue
		}

		if at := lastBreakPoint(current); at >= 0 {
			pieces = append(pieces, current[:at+1])
			current = append([]rune(nil), current[at+1:]...)
			continue
		}

		pieces = append(pieces, current)
		current = nil
	}
	if strings.TrimSpace(string(current)) != "" {
		pieces = append(pieces, current)
	}
	return pieces
}

func lastBreakPoint(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if breakPoints[runes[i]] {
			return i
		}
	}
	return -1
}
