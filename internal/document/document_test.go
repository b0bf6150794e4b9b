package document

import "testing"

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"report.txt", FormatText},
		{"data.CSV", FormatText},
		{"notes.md", FormatText},
		{"audit.log", FormatText},
		{"contract.docx", FormatDOCX},
		{"ledger.xlsx", FormatXLSX},
		{"scan.pdf", FormatPDF},
		{"memo.doc", FormatDOC},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if err != nil {
			t.Errorf("DetectFormat(%q): unexpected error %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DetectFormat(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDetectFormat_Unknown(t *testing.T) {
	if _, err := DetectFormat("image.png"); err != ErrUnknownFormat {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input, suffix, want string
	}{
		{"report.txt", "redacted", "report_redacted.txt"},
		{"contract.docx", "unredacted", "contract_unredacted.docx"},
		{"memo.doc", "redacted", "memo_redacted.docx"},
		{"/a/b/ledger.xlsx", "redacted", "/a/b/ledger_redacted.xlsx"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.input, tt.suffix); got != tt.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.input, tt.suffix, got, tt.want)
		}
	}
}
