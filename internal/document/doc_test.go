package document

import (
	"context"
	"testing"
)

func TestNoConverter_ReturnsUnavailable(t *testing.T) {
	var c Converter = NoConverter{}
	err := c.ConvertToDOCX(context.Background(), "memo.doc", "memo_converted.docx")
	if err != ErrExternalConverterUnavailable {
		t.Errorf("expected ErrExternalConverterUnavailable, got %v", err)
	}
}

func TestCommandConverter_EmptyNameUnavailable(t *testing.T) {
	c := CommandConverter{}
	err := c.ConvertToDOCX(context.Background(), "memo.doc", "memo_converted.docx")
	if err != ErrExternalConverterUnavailable {
		t.Errorf("expected ErrExternalConverterUnavailable, got %v", err)
	}
}

func TestCommandConverter_UnknownExecutable(t *testing.T) {
	c := CommandConverter{Name: "this-converter-does-not-exist-anywhere"}
	err := c.ConvertToDOCX(context.Background(), "memo.doc", "memo_converted.docx")
	if err == nil {
		t.Error("expected an error for a nonexistent converter executable")
	}
}

func TestRedactDOC_MissingFile(t *testing.T) {
	eng := testPDFEngine()
	_, _, _, err := RedactDOC(context.Background(), NoConverter{}, eng, "/nonexistent/memo.doc", nil)
	if err != ErrFileNotFound {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestStemOf(t *testing.T) {
	tests := []struct{ path, want string }{
		{"memo.doc", "memo"},
		{"/a/b/report.final.doc", "report.final"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := stemOf(tt.path); got != tt.want {
			t.Errorf("stemOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
