package core

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// sessionSeq disambiguates session ids generated within the same
// nanosecond, which happens under rapid view re-activation.
var sessionSeq atomic.Uint64

// NewSessionID generates a transport-safe session token for one watch
// activation. The id is readable for debugging (mode prefix plus the
// target discriminators) and collision-free across rapid
// re-activations (activation timestamp plus a process-wide counter).
// No structural meaning beyond uniqueness is implied.
func NewSessionID(target WatchTarget) string {
	mode := "list"
	if target.SingleObject() {
		mode = "object"
	}

	parts := []string{
		"watch", mode,
		target.Cluster,
		target.APIGroup,
		target.APIVersion,
		target.Kind,
		target.Namespace,
		target.Name,
	}

	raw := fmt.Sprintf("%s:%d:%d", strings.Join(parts, "/"), time.Now().UnixNano(), sessionSeq.Add(1))
	return sanitizeSessionID(raw)
}

// sanitizeSessionID restricts the id to the character set the
// transport's naming rules allow: letters, digits, and the separators
// '-', '/', ':', '_'. Anything else is substituted with '-'.
func sanitizeSessionID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '/', r == ':', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
