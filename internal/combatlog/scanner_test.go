package combatlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "WoWCombatLog-101926_210000.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func collect(t *testing.T, path string, chunkSize int) []Line {
	t.Helper()
	var got []Line
	err := readBackward(path, chunkSize, func(l Line) bool {
		got = append(got, l)
		return true
	})
	if err != nil {
		t.Fatalf("readBackward returned error: %v", err)
	}
	return got
}

func texts(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

func TestReadBackward_Order(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"trailing newline", "one\ntwo\nthree\n", []string{"three", "two", "one"}},
		{"no trailing newline", "one\ntwo\nthree", []string{"three", "two", "one"}},
		{"crlf", "one\r\ntwo\r\n", []string{"two", "one"}},
		{"interior blank line", "one\n\nthree\n", []string{"three", "", "one"}},
		{"single line", "only", []string{"only"}},
		{"empty file", "", nil},
	}

	for _, tt := range tests {
		for _, chunk := range []int{1, 3, defaultChunkSize} {
			t.Run(fmt.Sprintf("%s/chunk=%d", tt.name, chunk), func(t *testing.T) {
				path := writeLog(t, tt.content)
				got := texts(collect(t, path, chunk))
				if len(got) == 0 && len(tt.expected) == 0 {
					return
				}
				if !reflect.DeepEqual(got, tt.expected) {
					t.Errorf("lines = %q, want %q", got, tt.expected)
				}
			})
		}
	}
}

func TestReadBackward_Offsets(t *testing.T) {
	content := "aa\nbbbb\ncc\n"
	path := writeLog(t, content)

	for _, l := range collect(t, path, 2) {
		if !strings.HasPrefix(content[l.Offset:], l.Text) {
			t.Errorf("line %q at offset %d does not match file content", l.Text, l.Offset)
		}
	}
}

func TestReadBackward_LongLinesAcrossChunks(t *testing.T) {
	long := strings.Repeat("x", 1000)
	path := writeLog(t, "first\n"+long+"\nlast\n")

	got := texts(collect(t, path, 64))
	want := []string{"last", long, "first"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %d entries, want %d", len(got), len(want))
	}
}

func TestReadBackward_StopsEarly(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthree\n")

	var got []string
	err := ReadBackward(path, func(l Line) bool {
		got = append(got, l.Text)
		return len(got) < 2
	})
	if err != nil {
		t.Fatalf("ReadBackward returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"three", "two"}) {
		t.Fatalf("lines = %q, want [three two]", got)
	}
}

func TestReadBackward_ReleasesFileOnEarlyStop(t *testing.T) {
	path := writeLog(t, "one\ntwo\n")

	if err := ReadBackward(path, func(Line) bool { return false }); err != nil {
		t.Fatalf("ReadBackward returned error: %v", err)
	}
	// Removing and recreating the file fails on Windows if a handle leaked.
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove after scan: %v", err)
	}
}

func TestReadBackward_MissingFile(t *testing.T) {
	err := ReadBackward(filepath.Join(t.TempDir(), "gone.txt"), func(Line) bool { return true })
	if err == nil {
		t.Fatal("ReadBackward returned nil error, want error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ReadBackward error = %v, want it to wrap os.ErrNotExist", err)
	}
	if !strings.Contains(err.Error(), "open combat log") {
		t.Fatalf("ReadBackward error = %q, want it to mention open combat log", err.Error())
	}
}
