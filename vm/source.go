package vm

import (
	"bytes"
	"fmt"
	"os"
)

// LoadSource prepares raw program bytes for the interpreter. The text ends
// at the first NUL or 0x1A (DOS end-of-file) byte. Text longer than max
// bytes fails with ErrProgramTooLarge; max <= 0 uses the default limit.
func LoadSource(data []byte, max int) (string, error) {
	if max <= 0 {
		max = DefaultLimits().MaxProgramSize
	}
	if i := bytes.IndexAny(data, "\x00\x1a"); i >= 0 {
		data = data[:i]
	}
	if len(data) > max {
		return "", &Error{Kind: ErrProgramTooLarge, Msg: fmt.Sprintf("%d bytes exceeds the %d byte limit", len(data), max)}
	}
	return string(data), nil
}

// LoadFile reads a program from disk with LoadSource.
func LoadFile(path string, max int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	src, err := LoadSource(data, max)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return src, nil
}
