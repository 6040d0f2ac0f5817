package ident

import "testing"

func TestParseIdent(t *testing.T) {
	cases := []struct {
		input       string
		wantName    string
		wantVersion string
		wantBuild   string
	}{
		{"hello/1.0.0/r2", "hello", "1.0.0", "r2"},
		{"python/2.7", "python", "2.7", ""},
		{"tool", "tool", "0.0.0", ""},
	}

	for _, c := range cases {
		got, err := Parse(c.input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.input, err)
		}
		if got.Name != c.wantName {
			t.Errorf("Parse(%q).Name = %q, want %q", c.input, got.Name, c.wantName)
		}
		if got.Version.String() != c.wantVersion {
			t.Errorf("Parse(%q).Version = %q, want %q", c.input, got.Version.String(), c.wantVersion)
		}
		gotBuild := ""
		if got.Build != nil {
			gotBuild = got.Build.String()
		}
		if gotBuild != c.wantBuild {
			t.Errorf("Parse(%q).Build = %q, want %q", c.input, gotBuild, c.wantBuild)
		}
	}
}

func TestParseIdentRoundTrip(t *testing.T) {
	inputs := []string{"hello/1.0.0/r2", "python/2.7", "tool"}
	for _, input := range inputs {
		parsed, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", input, err)
		}
		reparsed, err := Parse(parsed.String())
		if err != nil {
			t.Fatalf("Parse(%q) round trip: %v", parsed.String(), err)
		}
		if reparsed.String() != parsed.String() {
			t.Errorf("round trip mismatch: %q != %q", reparsed.String(), parsed.String())
		}
	}
}

func TestParseIdentTooManyTokens(t *testing.T) {
	if _, err := Parse("a/1.0/r1/extra"); err == nil {
		t.Fatal("expected error for too many tokens")
	}
}

func TestParseIdentInvalidName(t *testing.T) {
	if _, err := Parse("1abc/1.0"); err == nil {
		t.Fatal("expected error for name starting with a digit")
	}
}

func TestVersionCompare(t *testing.T) {
	v1, _ := ParseVersion("1.0")
	v2, _ := ParseVersion("1.0.0")
	if !v1.Equal(v2) {
		t.Errorf("expected 1.0 == 1.0.0")
	}

	v3, _ := ParseVersion("2.0")
	if !v3.GreaterThan(v1) {
		t.Errorf("expected 2.0 > 1.0")
	}
	if !v1.LessThan(v3) {
		t.Errorf("expected 1.0 < 2.0")
	}
}
