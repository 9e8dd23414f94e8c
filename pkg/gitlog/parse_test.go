package gitlog

import (
	"errors"
	"testing"
	"time"
)

func TestParseLine(t *testing.T) {
	line := "a1b2c3|Alice Alpha|alice@example.com|1700000000"

	commit, err := parseLine(line)
	if err != nil {
		t.Fatalf("parseLine(%q) error = %v", line, err)
	}
	if commit.Hash != "a1b2c3" {
		t.Errorf("Hash = %q, want %q", commit.Hash, "a1b2c3")
	}
	if commit.AuthorName != "Alice Alpha" {
		t.Errorf("AuthorName = %q, want %q", commit.AuthorName, "Alice Alpha")
	}
	if commit.AuthorEmail != "alice@example.com" {
		t.Errorf("AuthorEmail = %q, want %q", commit.AuthorEmail, "alice@example.com")
	}
	if want := time.Unix(1700000000, 0).UTC(); !commit.Authored.Equal(want) {
		t.Errorf("Authored = %v, want %v", commit.Authored, want)
	}
}

func TestParseLineMalformed(t *testing.T) {
	testCases := []struct {
		name string
		line string
	}{
		{name: "too few fields", line: "a1b2c3|Alice|alice@example.com"},
		{name: "too many fields", line: "a1b2c3|Ali|ce|alice@example.com|1700000000"},
		{name: "empty line split", line: "|||"},
		{name: "non-numeric timestamp", line: "a1b2c3|Alice|alice@example.com|yesterday"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseLine(tc.line)
			if err == nil {
				t.Fatalf("parseLine(%q) succeeded, want malformed-line error", tc.line)
			}
			var malformed *MalformedLineError
			if !errors.As(err, &malformed) {
				t.Fatalf("parseLine(%q) error = %T, want *MalformedLineError", tc.line, err)
			}
			if malformed.Line != tc.line {
				t.Errorf("error Line = %q, want %q", malformed.Line, tc.line)
			}
		})
	}
}
