package compat

import (
	"strings"
	"testing"
)

func TestIsCompatible(t *testing.T) {
	tests := []struct {
		constraint string
		current    string
		want       bool
	}{
		{"^1.2.3", "1.2.3", true},
		{"^1.2.3", "1.9.9", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "1.2.2", false},
		{"^0.2.3", "0.2.9", true},
		{"^0.2.3", "0.3.0", false},
		{"^0.0.3", "0.0.3", true},
		{"^0.0.3", "0.0.4", false},

		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"~1.2.3", "1.2.2", false},
		{"~1", "1.9.0", true},
		{"~1", "2.0.0", false},
		{"~1.2", "1.2.7", true},
		{"~1.2", "1.3.0", false},
		{"~>1.2", "1.2.7", true},

		{">=14", "14.0.0", true},
		{">=14", "15.0.0", true},
		{">=14", "13.9.9", false},
		{">14", "14.0.0", false},
		{"<=16", "16.0.0", true},
		{"<16", "16.0.0", false},
		{"=18.17.1", "18.17.1", true},
		{"18", "18.0.0", true},
		{"18", "18.1.0", false},

		{">=14 <19", "18.2.0", true},
		{">=14 <19", "20.0.0", false},
		{">= 0.10.0", "20.0.0", true},
		{">=14 || ^12.22", "12.22.5", true},
		{">=14 || ^12.22", "12.21.0", false},
		{"1.2.3 - 2.3.4", "2.3.4", true},
		{"1.2.3 - 2.3.4", "2.3.5", false},
		{"1 - 2", "2.9.9", true},
		{"14.x", "14.9.1", true},
		{"14.x", "15.0.0", false},
		{"*", "1.0.0", true},
		{"", "1.0.0", true},

		{"^1.2.3", "v1.5.0", true},
		{">=18", "18.0.0-pre", true},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+"/"+tt.current, func(t *testing.T) {
			got, warnings := IsCompatible(tt.current, tt.constraint)
			if got != tt.want {
				t.Errorf("IsCompatible(%q, %q) = %v, want %v", tt.current, tt.constraint, got, tt.want)
			}
			if len(warnings) != 0 {
				t.Errorf("unexpected warnings: %v", warnings)
			}
		})
	}
}

func TestIsCompatible_Permissive(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		current    string
		want       bool
	}{
		{"unreadable term alone", ">=banana", "1.0.0", true},
		{"unreadable term with failing term", ">=banana <1", "2.0.0", false},
		{"unreadable term with passing term", "node-only >=14", "16.0.0", true},
		{"unreadable runtime", ">=14", "unknown", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings := IsCompatible(tt.current, tt.constraint)
			if got != tt.want {
				t.Errorf("IsCompatible(%q, %q) = %v, want %v", tt.current, tt.constraint, got, tt.want)
			}
			if len(warnings) == 0 {
				t.Error("expected a warning for the unreadable input")
			}
		})
	}
}

func TestParse_Warnings(t *testing.T) {
	c := Parse(">=14 foo.bar")
	if len(c.Warnings()) != 1 || !strings.Contains(c.Warnings()[0], "foo.bar") {
		t.Errorf("Warnings() = %v", c.Warnings())
	}
	if c.String() != ">=14 foo.bar" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"1.2.3", Version{1, 2, 3}, false},
		{"v20.11.1", Version{20, 11, 1}, false},
		{"14", Version{14, 0, 0}, false},
		{"14.2", Version{14, 2, 0}, false},
		{"1.2.3-beta.1+build", Version{1, 2, 3}, false},
		{"", Version{}, true},
		{"1.2.3.4", Version{}, true},
		{"a.b", Version{}, true},
		{"1.x", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestVersion_Compare(t *testing.T) {
	if (Version{1, 2, 3}).Compare(Version{1, 10, 0}) != -1 {
		t.Error("1.2.3 should sort before 1.10.0")
	}
	if (Version{2, 0, 0}).Compare(Version{1, 99, 99}) != 1 {
		t.Error("2.0.0 should sort after 1.99.99")
	}
	if (Version{1, 2, 3}).String() != "1.2.3" {
		t.Error("String() mismatch")
	}
}
