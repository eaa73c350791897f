package fsutil

import (
	"strings"
	"unicode"
)

const reservedChars = `<>:"/\|?*`

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizeFilename turns an arbitrary display name into a single path segment
// that is valid on the most restrictive supported file system. The result is
// never empty, at most MaxFilenameLength bytes long and stable under repeated
// application.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r > unicode.MaxASCII || r < 0x20 || r == 0x7f || strings.ContainsRune(reservedChars, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}

	out := escapeReserved(strings.TrimFunc(b.String(), trimmable))
	if len(out) > MaxFilenameLength {
		out = out[:MaxFilenameLength]
	}

	// Truncation can expose trailing dots or spaces and, in rare cases,
	// shorten the name back down to a device name.
	return escapeReserved(strings.TrimRightFunc(out, trimmable))
}

func escapeReserved(name string) string {
	if name == "" {
		return unnamed
	}
	if _, ok := reservedNames[strings.ToUpper(name)]; ok {
		return "_" + name
	}
	return name
}

// trimmable matches characters that may not lead or trail a name.
func trimmable(r rune) bool {
	return r == '.' || r <= ' ' || r == 0x7f
}
