package node

import (
	"strings"
	"testing"
)

func TestParseFingerprint(t *testing.T) {
	t.Parallel()

	valid := "47B72187844C00AA5D524415E52E3BE81E63056B"

	fp, err := ParseFingerprint(valid)
	if err != nil {
		t.Fatalf("parse valid fingerprint: %v", err)
	}
	if string(fp) != valid {
		t.Fatalf("fingerprint mismatch: got=%s want=%s", fp, valid)
	}
}

func TestParseFingerprintTrimsWhitespace(t *testing.T) {
	t.Parallel()

	valid := "47B72187844C00AA5D524415E52E3BE81E63056B"

	fp, err := ParseFingerprint("  " + valid + "\n")
	if err != nil {
		t.Fatalf("parse padded fingerprint: %v", err)
	}
	if string(fp) != valid {
		t.Fatalf("fingerprint mismatch: got=%s want=%s", fp, valid)
	}
}

func TestParseFingerprintPreservesCase(t *testing.T) {
	t.Parallel()

	mixed := "aAbBcCdDeEfF0123456789aAbBcCdDeEfF012345"

	fp, err := ParseFingerprint(mixed)
	if err != nil {
		t.Fatalf("parse mixed-case fingerprint: %v", err)
	}
	if string(fp) != mixed {
		t.Fatalf("case not preserved: got=%s want=%s", fp, mixed)
	}
}

func TestParseFingerprintInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"too short", strings.Repeat("A", 39)},
		{"too long", strings.Repeat("A", 41)},
		{"non alphanumeric", strings.Repeat("A", 39) + "!"},
		{"inner whitespace", strings.Repeat("A", 20) + " " + strings.Repeat("A", 19)},
		{"unicode letter", strings.Repeat("A", 39) + "é"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := ParseFingerprint(tc.text); err == nil {
				t.Fatalf("expected validation error for %q", tc.text)
			}
		})
	}
}

func TestUserIDString(t *testing.T) {
	t.Parallel()

	if got := UserID(-42).String(); got != "-42" {
		t.Fatalf("user id string mismatch: got=%s want=-42", got)
	}
}
