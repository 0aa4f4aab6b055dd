package memory

import "regexp"

// hallucinationScanThreshold is the string length above which writes are
// scanned for embedded code indicators.
const hallucinationScanThreshold = 5000

// hallucinationSampleThreshold is the length above which the scanner
// switches from "scan the whole string" to "sample several windows",
// closing the "code in the middle" leak.
const hallucinationSampleThreshold = 10000

// sampleWindowBytes is the size of each sampled window when a value is
// long enough to require sampling.
const sampleWindowBytes = 2000

// codeIndicatorPatterns are compiled once at package init. Each pattern is
// a signal that a supposedly-prose value actually contains source code,
// markup, or a query the model likely hallucinated into the field.
var codeIndicatorPatterns = []*regexp.Regexp{
	regexp.MustCompile("```"),                                             // markdown code fence
	regexp.MustCompile(`(?m)^\s*(import|from)\s+[\w.]+`),                  // Python/JS/Go-style import
	regexp.MustCompile(`(?m)\bfunction\s+\w+\s*\(`),                       // JS/PHP function decl
	regexp.MustCompile(`(?m)\bdef\s+\w+\s*\(`),                            // Python function decl
	regexp.MustCompile(`(?m)\bclass\s+\w+`),                               // class declaration
	regexp.MustCompile(`(?i)\b(select\s+.+\s+from|insert\s+into|update\s+\w+\s+set|delete\s+from|drop\s+table|create\s+table)\b`), // SQL
	regexp.MustCompile(`(?i)<script[\s>]`),  // inline script tag
	regexp.MustCompile(`<\?php`),            // PHP open tag
	regexp.MustCompile(`^#!\s*/`),           // shell shebang
	regexp.MustCompile(`(?m)^\s*(public|private|protected)\s+(static\s+)?\w+\s+\w+\s*\(`), // Java/C#/C++ method decl
}

// ContainsCodeIndicator reports whether s matches any compiled indicator
// pattern.
func ContainsCodeIndicator(s string) bool {
	for _, p := range codeIndicatorPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// sampleWindows returns the substrings of s that DetectHallucinatedCode
// should scan. Short strings are scanned in full; long strings are sampled
// at the start, several interior offsets, and the end so a code block
// buried in the middle of a long value cannot evade detection by pushing
// past a prefix-only scan.
func sampleWindows(s string) []string {
	if len(s) <= hallucinationSampleThreshold {
		return []string{s}
	}

	window := sampleWindowBytes
	clamp := func(i int) int {
		if i < 0 {
			return 0
		}
		if i > len(s) {
			return len(s)
		}
		return i
	}

	offsets := []int{
		0,
		len(s) / 4,
		len(s) / 2,
		(len(s) * 3) / 4,
		len(s) - window,
	}

	windows := make([]string, 0, len(offsets))
	for _, off := range offsets {
		start := clamp(off)
		end := clamp(start + window)
		if end <= start {
			continue
		}
		windows = append(windows, s[start:end])
	}
	return windows
}

// DetectHallucinatedCode implements the anti-hallucination guard:
// strings of at most hallucinationScanThreshold bytes are never
// scanned; strings up to hallucinationSampleThreshold are scanned whole;
// longer strings are scanned only within the sampleWindowBytes windows
// that sampleWindows takes at the start, three interior offsets, and the
// end, so an indicator lying wholly between two windows is not detected.
func DetectHallucinatedCode(value string) bool {
	if len(value) <= hallucinationScanThreshold {
		return false
	}
	for _, w := range sampleWindows(value) {
		if ContainsCodeIndicator(w) {
			return true
		}
	}
	return false
}
