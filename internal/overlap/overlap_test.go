package overlap

import (
	"testing"

	"pii-redaction-engine/internal/recognizers"
)

func span(start, end int, typ string, score float64, text string) recognizers.Span {
	return recognizers.Span{Start: start, End: end, Type: typ, Score: score, Text: text}
}

func TestValidateSWIFTCode(t *testing.T) {
	if ValidateSWIFTCode("document") {
		t.Error("lowercase non-SWIFT word should be rejected")
	}
	if !ValidateSWIFTCode("DEUTDEFF") {
		t.Error("DEUTDEFF should be accepted as a valid SWIFT code")
	}
}

func TestValidateEmailAddress(t *testing.T) {
	if ValidateEmailAddress("notanemail") {
		t.Error("notanemail should be rejected")
	}
	if !ValidateEmailAddress("alice@example.com") {
		t.Error("alice@example.com should be accepted")
	}
}

func TestValidateIPAddress(t *testing.T) {
	if ValidateIPAddress("localhost") {
		t.Error("localhost should be rejected as not a valid IP literal")
	}
	if !ValidateIPAddress("192.168.1.1") {
		t.Error("192.168.1.1 should be accepted")
	}
	if !ValidateIPAddress("::1") {
		t.Error("::1 should be accepted")
	}
}

func TestValidateIBAN(t *testing.T) {
	// Well-known valid test IBAN (Germany).
	if !ValidateIBAN("DE89370400440532013000") {
		t.Error("expected valid German IBAN to pass checksum")
	}
	if ValidateIBAN("DE89370400440532013001") {
		t.Error("expected corrupted IBAN to fail checksum")
	}
}

func TestValidateCreditCard(t *testing.T) {
	if !ValidateCreditCard("4532015112830366") {
		t.Error("expected Luhn-valid test card number to pass")
	}
	if ValidateCreditCard("4532015112830367") {
		t.Error("expected Luhn-invalid number to fail")
	}
}

func TestValidateUSSSN(t *testing.T) {
	if !ValidateUSSSN("123-45-6789") {
		t.Error("expected well-formed SSN to pass")
	}
	if ValidateUSSSN("000-45-6789") {
		t.Error("area 000 should never be issued")
	}
	if ValidateUSSSN("666-45-6789") {
		t.Error("area 666 should never be issued")
	}
	if ValidateUSSSN("900-45-6789") {
		t.Error("area 9xx should never be issued")
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if !ValidatePhoneNumber("555-867-5309") {
		t.Error("expected 10-digit phone number to pass")
	}
	if ValidatePhoneNumber("123") {
		t.Error("too-short digit sequence should fail")
	}
}

func TestResolve_DropsOverlap_HigherScoreWins(t *testing.T) {
	candidates := []recognizers.Span{
		span(0, 10, "ORGANIZATION", 0.6, "Acme Corp."),
		span(0, 10, recognizers.TypePerson, 0.9, "Acme Corp."),
	}
	got := Resolve(candidates)
	if len(got) != 1 {
		t.Fatalf("expected 1 span after overlap resolution, got %d", len(got))
	}
	if got[0].Type != recognizers.TypePerson {
		t.Errorf("expected higher-scoring PERSON to win, got %s", got[0].Type)
	}
}

func TestResolve_LongerSpanWinsOnTie(t *testing.T) {
	candidates := []recognizers.Span{
		span(0, 20, recognizers.TypePerson, 0.8, "Alice Smith, M.D."),
		span(0, 11, recognizers.TypePerson, 0.8, "Alice Smith"),
	}
	got := Resolve(candidates)
	if len(got) != 1 {
		t.Fatalf("expected 1 span, got %d", len(got))
	}
	if got[0].End != 20 {
		t.Errorf("expected the longer span to win on equal score, got end=%d", got[0].End)
	}
}

func TestResolve_CoincidentSpansTieBreakAlphabetically(t *testing.T) {
	candidates := []recognizers.Span{
		span(5, 15, "ZEBRA_TYPE", 0.7, "1234567890"),
		span(5, 15, "ALPHA_TYPE", 0.7, "1234567890"),
	}
	got := Resolve(candidates)
	if len(got) != 1 {
		t.Fatalf("expected 1 span, got %d", len(got))
	}
	if got[0].Type != "ALPHA_TYPE" {
		t.Errorf("expected alphabetically-first type to win tie, got %s", got[0].Type)
	}
}

func TestResolve_NonOverlappingSpansBothSurvive(t *testing.T) {
	candidates := []recognizers.Span{
		span(0, 5, recognizers.TypeEmailAddress, 0.9, "a@b.c"),
		span(20, 31, recognizers.TypeUSSSN, 0.8, "123-45-6789"),
	}
	got := Resolve(candidates)
	if len(got) != 2 {
		t.Fatalf("expected both non-overlapping spans to survive, got %d", len(got))
	}
}

func TestResolve_InvalidFormatSpanDropped(t *testing.T) {
	candidates := []recognizers.Span{
		span(0, 9, recognizers.TypeEmailAddress, 0.9, "notanemail"),
	}
	got := Resolve(candidates)
	if len(got) != 0 {
		t.Errorf("expected format-invalid span to be dropped, got %+v", got)
	}
}

func TestResolve_InvalidSpanDoesNotSuppressValidOverlap(t *testing.T) {
	candidates := []recognizers.Span{
		span(0, 9, recognizers.TypeEmailAddress, 0.95, "notanemail"),
		span(0, 9, "USERNAME", 0.5, "notanemail"),
	}
	got := Resolve(candidates)
	if len(got) != 1 || got[0].Type != "USERNAME" {
		t.Errorf("expected USERNAME to survive once the invalid EMAIL_ADDRESS is dropped, got %+v", got)
	}
}

func TestResolve_OutputSortedByPosition(t *testing.T) {
	candidates := []recognizers.Span{
		span(50, 60, recognizers.TypeUSSSN, 0.8, "123456789"),
		span(0, 5, recognizers.TypeEmailAddress, 0.9, "a@b.c"),
	}
	got := Resolve(candidates)
	if len(got) != 2 || got[0].Start != 0 || got[1].Start != 50 {
		t.Errorf("expected spans sorted by start offset, got %+v", got)
	}
}
