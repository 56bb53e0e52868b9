package version

import (
	"strings"
	"testing"
)

func TestVersionStringNonEmpty(t *testing.T) {
	s := String()
	if s == "" {
		t.Fatalf("version string is empty")
	}
	if !strings.HasPrefix(s, Version) {
		t.Fatalf("version string %q does not start with %q", s, Version)
	}
}
