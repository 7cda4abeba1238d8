package errors

import (
	"math"
	"strings"
	"testing"
)

func TestValidateNoteContent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "hello there", false},
		{"valid multiline", "line one\nline two\ttabbed", false},
		{"valid unicode", "héllo 👋", false},
		{"valid at limit", strings.Repeat("a", MaxNoteLength), false},

		{"empty", "", true},
		{"whitespace only", "  \n\t ", true},
		{"too long", strings.Repeat("a", MaxNoteLength+1), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNoteContent(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNoteContent(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidNote) {
				t.Errorf("expected INVALID_NOTE, got %v", GetCode(err))
			}
		})
	}
}

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"negative", -512.5, false},
		{"large", 9e6, false},

		{"NaN", math.NaN(), true},
		{"+Inf", math.Inf(1), true},
		{"-Inf", math.Inf(-1), true},
		{"out of range", 2e7, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinate("x", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinate(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "ada@example.com", false},
		{"valid plus", "ada+notes@example.co.uk", false},

		{"empty", "", true},
		{"no at", "ada.example.com", true},
		{"display name", "Ada <ada@example.com>", true},
		{"too long", strings.Repeat("a", 250) + "@x.io", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBlogTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Hello, World!", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("t", MaxTitleLength+1), true},
		{"newline", "two\nlines", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBlogTitle(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBlogTitle(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "hello-world", false},
		{"valid digits", "go-1-24-notes", false},
		{"single word", "intro", false},

		{"empty", "", true},
		{"uppercase", "Hello-World", true},
		{"leading dash", "-hello", true},
		{"trailing dash", "hello-", true},
		{"double dash", "hello--world", true},
		{"path traversal", "../etc", true},
		{"too long", strings.Repeat("a", MaxSlugLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSlug(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "0f8fad5b-d9cb-469f-a165-70867728950e", false},
		{"hex object id", "65a1f0c2b3e4d5f6a7b8c9d0", false},

		{"empty", "", true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"dots", "..", true},
		{"control", "a\x00b", true},
		{"too long", strings.Repeat("a", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid https", "https://avatars.githubusercontent.com/u/1", false},
		{"valid http", "http://localhost:8080/callback", false},

		{"empty", "", true},
		{"javascript", "javascript:alert(1)", true},
		{"ftp", "ftp://example.com", true},
		{"no scheme", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
