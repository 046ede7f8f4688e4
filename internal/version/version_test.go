package version

import (
	"strings"
	"testing"
)

func TestLongIncludesBuildMetadata(t *testing.T) {
	long := Long()
	info := Current()
	for _, want := range []string{info.Name, info.Version, info.Commit, info.Go} {
		if !strings.Contains(long, want) {
			t.Fatalf("expected %q in %q", want, long)
		}
	}
}
