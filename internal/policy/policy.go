package policy

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/rise-pilot/internal/errors"
)

// CheckActionAllowed enforces the enable_actions allowlist. An empty list
// allows every action.
func CheckActionAllowed(allowlist []string, action string) error {
	if len(allowlist) == 0 {
		return nil
	}
	norm := normalize(action)
	for _, allowed := range allowlist {
		if normalize(allowed) == norm {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, fmt.Sprintf("action %q blocked by enable_actions policy", norm))
}

// FilterAllowed keeps the candidates the allowlist permits, in order.
func FilterAllowed(allowlist []string, candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if CheckActionAllowed(allowlist, c) == nil {
			out = append(out, c)
		}
	}
	return out
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
