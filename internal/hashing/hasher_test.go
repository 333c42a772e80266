package hashing

import (
	"bytes"
	"strings"
	"testing"
)

func TestHashBytesIsDeterministic(t *testing.T) {
	a := HashBytes([]byte("scanned page"))
	b := HashBytes([]byte("scanned page"))
	if a != b {
		t.Errorf("same bytes hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == HashBytes([]byte("other page")) {
		t.Error("different bytes collided")
	}
}

func TestHashReaderMatchesHashBytes(t *testing.T) {
	content := []byte("a few kilobytes of page data")
	fromReader, err := HashReader(bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if fromReader != HashBytes(content) {
		t.Error("reader and byte hashes diverge")
	}
}

func TestHashTextNormalizesWhitespace(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		same bool
	}{
		{"collapsed spaces", "mechanics  syllabus", "mechanics syllabus", true},
		{"leading and trailing", "  mechanics syllabus\n", "mechanics syllabus", true},
		{"newlines vs spaces", "mechanics\nsyllabus", "mechanics syllabus", true},
		{"different words", "mechanics syllabus", "optics syllabus", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HashText(tc.a) == HashText(tc.b)
			if got != tc.same {
				t.Errorf("HashText(%q) == HashText(%q): %v, want %v", tc.a, tc.b, got, tc.same)
			}
		})
	}
}

func TestShortHash(t *testing.T) {
	full := HashBytes([]byte("x"))
	short := ShortHash(full)
	if len(short) != ShortHashLen {
		t.Errorf("short hash length = %d", len(short))
	}
	if !strings.HasPrefix(full, short) {
		t.Error("short hash is not a prefix of the full digest")
	}
	if ShortHash("abc") != "abc" {
		t.Error("short inputs must pass through")
	}
}
