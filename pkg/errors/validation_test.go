package errors

import (
	"strings"
	"testing"
)

func TestValidateNpmPackageName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"express", false},
		{"@types/node", false},
		{"lodash.merge", false},
		{"socket.io", false},
		{"", true},
		{strings.Repeat("a", 215), true},
		{"Express", true},
		{"@scope", true},
		{"has space", true},
		{"foo/../bar", true},
		{"foo//bar", true},
		{"foo\\bar", true},
		{"foo\x00bar", true},
		{"foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateNpmPackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNpmPackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPackage) {
				t.Errorf("code = %s, want %s", GetCode(err), ErrCodeInvalidPackage)
			}
		})
	}
}

func TestValidateScope(t *testing.T) {
	for _, ok := range []string{"@acme", "@my-org"} {
		if err := ValidateScope(ok); err != nil {
			t.Errorf("ValidateScope(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"", "acme", "@", "@Acme", "@acme/pkg"} {
		if err := ValidateScope(bad); err == nil {
			t.Errorf("ValidateScope(%q) = nil, want error", bad)
		}
	}
}

func TestValidateVersionSpec(t *testing.T) {
	for _, ok := range []string{"", "latest", "^1.2.3", ">=1 <2 || 3.x"} {
		if err := ValidateVersionSpec(ok); err != nil {
			t.Errorf("ValidateVersionSpec(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"1.0\n", strings.Repeat("1", 300)} {
		if err := ValidateVersionSpec(bad); err == nil {
			t.Errorf("ValidateVersionSpec(%q) = nil, want error", bad)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://registry.npmjs.org", false},
		{"http", "http://localhost:4873", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"file", "file:///etc/passwd", true},
		{"no host", "https://", true},
		{"relative", "registry.npmjs.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
