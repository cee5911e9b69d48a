package input

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Encodings lists the names Decode accepts besides "auto".
var Encodings = []string{"utf-8", "shift_jis", "euc-jp", "iso-2022-jp", "utf-16le", "utf-16be"}

func lookup(name string) (encoding.Encoding, bool) {
	switch strings.ReplaceAll(strings.ToLower(name), "_", "-") {
	case "utf-8", "utf8":
		return unicode.UTF8BOM, true
	case "shift-jis", "sjis", "cp932":
		return japanese.ShiftJIS, true
	case "euc-jp", "eucjp":
		return japanese.EUCJP, true
	case "iso-2022-jp", "jis":
		return japanese.ISO2022JP, true
	case "utf-16", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), true
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), true
	}
	return nil, false
}

// Decode converts b to a string. name is one of Encodings, or "" / "auto"
// to honor a UTF-16 or UTF-8 byte order mark and fall back to Shift_JIS
// for bytes that are not valid UTF-8.
func Decode(b []byte, name string) (string, error) {
	if name == "" || strings.EqualFold(name, "auto") {
		return decodeAuto(b)
	}
	enc, ok := lookup(name)
	if !ok {
		return "", fmt.Errorf("unsupported encoding %q (want one of %s)", name, strings.Join(Encodings, ", "))
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("unable to decode input as %s: %w", name, err)
	}
	return string(out), nil
}

func decodeAuto(b []byte) (string, error) {
	switch {
	case bytes.HasPrefix(b, []byte{0xFF, 0xFE}):
		return Decode(b, "utf-16le")
	case bytes.HasPrefix(b, []byte{0xFE, 0xFF}):
		return Decode(b, "utf-16be")
	case utf8.Valid(b):
		return Decode(b, "utf-8")
	}
	return Decode(b, "shift_jis")
}
