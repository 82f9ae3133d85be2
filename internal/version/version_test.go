package version

import "testing"

func TestVersionStrings(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })

	Version, Commit = "1.2.0", ""
	if got := String(); got != "1.2.0" {
		t.Fatalf("String() = %q", got)
	}
	if got := UserAgent(); got != "detailpage/1.2.0" {
		t.Fatalf("UserAgent() = %q", got)
	}
	Commit = "abc123"
	if got := String(); got != "1.2.0 (abc123)" {
		t.Fatalf("String() = %q", got)
	}
	if got := UserAgent(); got != "detailpage/1.2.0+abc123" {
		t.Fatalf("UserAgent() = %q", got)
	}
}
