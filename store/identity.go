package store

import (
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// canonicalID matches a conversation identifier: an ISO-8601 timestamp with
// ':' and '.' replaced by '-', e.g. 2024-01-02T15-04-05-000Z.
var canonicalID = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-\d{3}Z$`)

// IsCanonicalID reports whether s is a valid conversation identifier.
func IsCanonicalID(s string) bool {
	return canonicalID.MatchString(s)
}

// NowID formats t as a canonical conversation identifier. The millisecond
// field is appended by hand since a reference layout cannot express a
// dash-separated fraction.
func NowID(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s-%03dZ", t.Format("2006-01-02T15-04-05"), t.Nanosecond()/int(time.Millisecond))
}

// ResolveID validates candidate against the canonical identifier format and
// returns it unchanged on a match. Anything else falls back to fallback with
// a warning. It never fails.
func ResolveID(log *zap.SugaredLogger, candidate, fallback string) string {
	if IsCanonicalID(candidate) {
		return candidate
	}
	log.Warnw("invalid conversation id, using fallback", "candidate", candidate, "fallback", fallback)
	return fallback
}
