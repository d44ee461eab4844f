package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength is the npm registry's limit on package names, scope included.
const maxNameLength = 214

var (
	npmNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)
	scopeRegex   = regexp.MustCompile(`^@[a-z0-9-~][a-z0-9-._~]*$`)
)

// ValidateNpmPackageName checks that name is a lowercase npm package name,
// optionally scoped. Names end up in registry paths and workflow inputs, so
// anything that could escape a path segment is rejected before the pattern
// check.
func ValidateNpmPackageName(name string) error {
	switch {
	case name == "":
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	case len(name) > maxNameLength:
		return New(ErrCodeInvalidPackage, "package name too long (max %d characters)", maxNameLength)
	case strings.ContainsFunc(name, unicode.IsControl):
		return New(ErrCodeInvalidPackage, "package name contains control characters")
	case strings.Contains(name, "..") || strings.Contains(name, "\\"):
		return New(ErrCodeInvalidPackage, "package name contains a path sequence: %q", name)
	case strings.ToLower(name) != name:
		return New(ErrCodeInvalidPackage, "npm package names must be lowercase: %q", name)
	case !npmNameRegex.MatchString(name):
		return New(ErrCodeInvalidPackage, "invalid npm package name: %q", name)
	}
	return nil
}

// ValidateScope validates a private registry scope such as "@acme".
func ValidateScope(scope string) error {
	if !scopeRegex.MatchString(scope) {
		return New(ErrCodeInvalidConfig, "invalid registry scope %q (want @name)", scope)
	}
	return nil
}

// ValidateVersionSpec rejects version specifiers that cannot be sent to a
// registry or a workflow input: control characters and overlong values.
func ValidateVersionSpec(spec string) error {
	if len(spec) > 256 {
		return New(ErrCodeInvalidInput, "version specifier too long (max 256 characters)")
	}
	if strings.ContainsFunc(spec, unicode.IsControl) {
		return New(ErrCodeInvalidInput, "version specifier contains control characters")
	}
	return nil
}

// ValidateURL checks that rawURL is an absolute http or https URL with a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", rawURL)
	}
	return nil
}
