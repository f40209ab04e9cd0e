package format

import "testing"

func TestPlainText(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"plain passthrough", "walk the dog at noon", "walk the dog at noon"},
		{"heading", "# Vet Visit\n\nBring the records.", "Vet Visit Bring the records."},
		{"emphasis stripped", "the *vet* said **rest**", "the vet said rest"},
		{"list items", "- flea meds\n- heartworm pill", "flea meds heartworm pill"},
		{"link text kept", "[vaccination chart](https://example.com/chart)", "vaccination chart"},
		{"fenced code", "```\ndose: 5mg\n```", "dose: 5mg"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.source); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("# Title\n\nbody", 100); got != "Title body" {
		t.Errorf("Preview() = %q, want %q", got, "Title body")
	}
	if got := Preview("abcdefgh", 4); got != "abcd" {
		t.Errorf("Preview() = %q, want %q", got, "abcd")
	}
	// Truncation must not split a multi-byte rune.
	got := Preview("héllo", 2)
	if got != "h" {
		t.Errorf("Preview() = %q, want %q", got, "h")
	}
}
