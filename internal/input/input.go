// Package input gathers the text vp speaks: from --say, a file, stdin or
// the clipboard, decoded from legacy Japanese charsets when asked and
// optionally stripped of markdown.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dgnsrekt/vp/utils"
)

// Stdin is the file name that means standard input.
const Stdin = "-"

var (
	// ErrNoInput is returned when no source was given.
	ErrNoInput = errors.New("either --say or --text must be specified")

	// ErrConflict is returned when more than one source was given.
	ErrConflict = errors.New("only one of --say, --text or --clipboard may be used")

	// ErrEmpty is returned when the source holds only whitespace.
	ErrEmpty = errors.New("input text is empty")
)

// Options selects where text comes from.
type Options struct {
	Say       string
	File      string // path, or "-" for stdin
	Clipboard bool
	Encoding  string // see Decode
	Markdown  bool

	// Stdin is read when File is "-" or when no other source is set and
	// StdinPiped is true.
	Stdin      io.Reader
	StdinPiped bool

	// readClipboard is swapped out in tests.
	readClipboard func() (string, error)
}

// Read returns the text selected by opts, trimmed.
func Read(opts Options) (string, error) {
	n := 0
	for _, set := range []bool{opts.Say != "", opts.File != "", opts.Clipboard} {
		if set {
			n++
		}
	}
	if n > 1 {
		return "", ErrConflict
	}

	var (
		text string
		err  error
	)
	switch {
	case opts.Say != "":
		text = opts.Say
	case opts.Clipboard:
		text, err = opts.clipboard()
	case opts.File == Stdin, opts.File == "" && opts.StdinPiped:
		text, err = readAll(opts.Stdin, opts.Encoding)
	case opts.File != "":
		text, err = readFile(opts.File, opts.Encoding)
	default:
		return "", ErrNoInput
	}
	if err != nil {
		return "", err
	}

	if opts.Markdown {
		text = StripMarkdown(string(utils.RemoveFrontmatter([]byte(text))))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func (o Options) clipboard() (string, error) {
	read := o.readClipboard
	if read == nil {
		read = clipboard.ReadAll
	}
	text, err := read()
	if err != nil {
		return "", fmt.Errorf("unable to read clipboard: %w", err)
	}
	return text, nil
}

func readFile(path, encoding string) (string, error) {
	f, err := os.Open(utils.ExpandPath(path))
	if err != nil {
		return "", fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return readAll(f, encoding)
}

func readAll(r io.Reader, encoding string) (string, error) {
	if r == nil {
		return "", ErrNoInput
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("unable to read input: %w", err)
	}
	return Decode(b, encoding)
}
