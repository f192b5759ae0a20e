package combatlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const defaultChunkSize = 64 * 1024

// Line is a single record read from a combat log.
type Line struct {
	Offset int64 // byte offset of the first character of the line
	Text   string
}

// ReadBackward calls yield for every line of the file at path, newest first,
// until yield returns false or the start of the file is reached. The file is
// only held open for the duration of the call.
func ReadBackward(path string, yield func(Line) bool) error {
	return readBackward(path, defaultChunkSize, yield)
}

func readBackward(path string, chunkSize int, yield func(Line) bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open combat log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat combat log: %w", err)
	}

	pos := info.Size()
	if pos == 0 {
		return nil
	}

	// tail holds the bytes between pos and the newline that ends the line
	// currently being assembled.
	var tail []byte
	atEOF := true
	for pos > 0 {
		n := int64(chunkSize)
		if n > pos {
			n = pos
		}
		start := pos - n
		chunk := make([]byte, n, n+int64(len(tail)))
		read, err := file.ReadAt(chunk, start)
		if err != nil && !(errors.Is(err, io.EOF) && int64(read) == n) {
			return fmt.Errorf("read combat log: %w", err)
		}
		buf := append(chunk, tail...)

		for {
			idx := bytes.LastIndexByte(buf, '\n')
			if idx < 0 {
				break
			}
			text := buf[idx+1:]
			if !(atEOF && len(text) == 0) {
				if !yield(Line{Offset: start + int64(idx) + 1, Text: trimCR(text)}) {
					return nil
				}
			}
			atEOF = false
			buf = buf[:idx]
		}
		tail = buf
		pos = start
	}

	if atEOF && len(tail) == 0 {
		return nil
	}
	yield(Line{Offset: 0, Text: trimCR(tail)})
	return nil
}

func trimCR(b []byte) string {
	return string(bytes.TrimSuffix(b, []byte{'\r'}))
}
