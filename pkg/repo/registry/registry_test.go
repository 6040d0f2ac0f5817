package registry

import "testing"

func TestParsePlatform(t *testing.T) {
	cases := []struct {
		input       string
		wantOS      string
		wantArch    string
		wantVariant string
	}{
		{"linux/amd64", "linux", "amd64", ""},
		{"linux/arm64/v8", "linux", "arm64", "v8"},
	}

	for _, c := range cases {
		p, err := parsePlatform(c.input)
		if err != nil {
			t.Fatalf("parsePlatform(%q): %v", c.input, err)
		}
		if p.OS != c.wantOS || p.Architecture != c.wantArch || p.Variant != c.wantVariant {
			t.Errorf("parsePlatform(%q) = %+v, want os=%q arch=%q variant=%q",
				c.input, p, c.wantOS, c.wantArch, c.wantVariant)
		}
	}
}

func TestParsePlatformInvalid(t *testing.T) {
	for _, input := range []string{"", "linux", "linux/amd64/v8/extra", "/amd64", "linux/"} {
		if _, err := parsePlatform(input); err == nil {
			t.Errorf("parsePlatform(%q): expected error", input)
		}
	}
}
