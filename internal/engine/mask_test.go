package engine

import "testing"

func TestMaskValue_ShortStringAllAsterisks(t *testing.T) {
	for _, s := range []string{"a", "ab", "abc", "abcd"} {
		got := maskValue(s)
		for _, r := range got {
			if r != '*' {
				t.Errorf("maskValue(%q) = %q, want all asterisks", s, got)
				break
			}
		}
		if len(got) != len(s) {
			t.Errorf("maskValue(%q) changed length: got %q", s, got)
		}
	}
}

func TestMaskValue_PartialMask(t *testing.T) {
	got := maskValue("john@example.com") // 16 runes, keep = 4
	want := "john********.com"
	if got != want {
		t.Errorf("maskValue = %q, want %q", got, want)
	}
}

func TestMaskValue_PreservesLength(t *testing.T) {
	s := "123456789"
	got := maskValue(s)
	if len(got) != len(s) {
		t.Errorf("expected masked length %d, got %d (%q)", len(s), len(got), got)
	}
}
