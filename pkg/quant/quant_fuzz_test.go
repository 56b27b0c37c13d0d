package quant

import (
	"testing"
)

// FuzzParsePrice tests decimal-string parsing with fuzzing.
func FuzzParsePrice(f *testing.F) {
	f.Add("0")
	f.Add("1.23")
	f.Add("-1.23")
	f.Add("0.000001")
	f.Add("9999999.999999")
	f.Add("not a number")
	f.Add("1e308")

	f.Fuzz(func(t *testing.T, s string) {
		// Invalid input must come back as an error, never a panic.
		p, err := ParsePrice(s)
		if err != nil {
			return
		}
		if !p.IsValid() {
			return
		}
		// Valid prices round-trip through their string form.
		back, err := ParsePrice(FormatPrice(p))
		if err != nil {
			t.Fatalf("FormatPrice(%d) = %q did not parse back: %v", p, FormatPrice(p), err)
		}
		if back != p {
			t.Fatalf("round trip %d -> %q -> %d", p, FormatPrice(p), back)
		}
	})
}

// FuzzParsePercent tests percent parsing with fuzzing.
func FuzzParsePercent(f *testing.F) {
	f.Add("0")
	f.Add("1.5")
	f.Add("-20")
	f.Add("100")
	f.Add("")

	f.Fuzz(func(t *testing.T, s string) {
		_, _ = ParsePercent(s)
	})
}
