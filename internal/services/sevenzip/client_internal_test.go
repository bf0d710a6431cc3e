package sevenzip

import "testing"

func TestParseProgress(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		ok      bool
		percent float64
		message string
	}{
		{"bare percent", "  7%", true, 7, ""},
		{"with file", " 63% 12 - photos/cat.jpg", true, 63, "photos/cat.jpg"},
		{"complete", "100%", true, 100, ""},
		{"not progress", "Extracting archive: a.7z", false, 0, ""},
		{"percent in text", "Everything is 100% fine", false, 0, ""},
		{"leading percent", "%", false, 0, ""},
		{"out of range", "250%", false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProgress(tt.line)
			if ok != tt.ok {
				t.Fatalf("parseProgress(%q) ok=%v, want %v", tt.line, ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Percent != tt.percent || got.Message != tt.message {
				t.Fatalf("parseProgress(%q) = %+v", tt.line, got)
			}
		})
	}
}

func TestIsErrorLine(t *testing.T) {
	for _, line := range []string{
		"ERROR: CRC Failed : a.txt",
		"Can't open as archive: 1",
		"Sub items Errors: 3",
		"Missing volume : a.7z.002",
		"ERROR: Wrong password : a.txt",
	} {
		if !isErrorLine(line) {
			t.Fatalf("expected %q to be classified as an error line", line)
		}
	}
	if isErrorLine("Extracting archive: a.7z") {
		t.Fatal("expected banner line to be ignored")
	}
}

func TestScanLinesOrCarriageReturns(t *testing.T) {
	data := []byte(" 10%\r 20%\nEverything is Ok")
	var tokens []string
	for len(data) > 0 {
		advance, token, err := scanLinesOrCarriageReturns(data, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if advance == 0 {
			break
		}
		tokens = append(tokens, string(token))
		data = data[advance:]
	}
	want := []string{" 10%", " 20%", "Everything is Ok"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens: %q", tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d = %q, want %q", i, tokens[i], want[i])
		}
	}
}
