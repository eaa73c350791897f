package archive

import (
	"bytes"
	"io"
	"os"
)

var (
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
	exeMagic = []byte{0x4D, 0x5A}
)

// IsZip reports whether the file at path starts with the local file header
// signature of a zip archive. Any error reading the file yields false.
func IsZip(path string) bool {
	return hasPrefix(path, zipMagic)
}

// IsExecutable reports whether the file at path starts with the MZ signature
// of a DOS/PE executable. Any error reading the file yields false.
func IsExecutable(path string) bool {
	return hasPrefix(path, exeMagic)
}

func hasPrefix(path string, magic []byte) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	return bytes.Equal(buf, magic)
}
