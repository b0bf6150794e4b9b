package engine

import (
	"testing"

	"pii-redaction-engine/internal/recognizers"
)

func TestAssignPlaceholders_DenseCounterPerType(t *testing.T) {
	spans := []recognizers.Span{
		{Start: 0, End: 5, Type: recognizers.TypeEmailAddress},
		{Start: 10, End: 15, Type: recognizers.TypePerson},
		{Start: 20, End: 25, Type: recognizers.TypeEmailAddress},
	}
	entities := assignPlaceholders(spans)
	if entities[0].Placeholder != "[EMAIL_ADDRESS_1]" {
		t.Errorf("got %q", entities[0].Placeholder)
	}
	if entities[1].Placeholder != "[PERSON_1]" {
		t.Errorf("got %q", entities[1].Placeholder)
	}
	if entities[2].Placeholder != "[EMAIL_ADDRESS_2]" {
		t.Errorf("got %q", entities[2].Placeholder)
	}
}

func TestSubstitute_RightToLeftPreservesEarlierOffsets(t *testing.T) {
	text := "Email a@b.com and c@d.com"
	spans := []recognizers.Span{
		{Start: 6, End: 13, Type: recognizers.TypeEmailAddress},
		{Start: 18, End: 25, Type: recognizers.TypeEmailAddress},
	}
	entities := assignPlaceholders(spans)
	got := substitute(text, entities)
	want := "Email [EMAIL_ADDRESS_1] and [EMAIL_ADDRESS_2]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
