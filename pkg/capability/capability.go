// Package capability implements the Capability Matcher and Audience
// Matcher: pure, dependency-free functions applying the fabric's single
// wildcard rule (exact match, or a trailing "*" prefix match).
package capability

import "strings"

// MatchCapability reports whether required is granted by any entry in
// granted. An entry grants required if it equals required exactly, or if
// it ends in "*" and required starts with the entry's prefix (the text
// before the "*"). A bare "*" entry has an empty prefix and therefore
// grants everything — a legitimate, if dangerous, super-capability.
//
// No other wildcard forms are recognized: no "?", no mid-string "*", no
// regex.
func MatchCapability(granted []string, required string) bool {
	for _, entry := range granted {
		if matchEntry(entry, required) {
			return true
		}
	}
	return false
}

// MatchCapabilityEntry reports which granted entry (if any) satisfied
// required, so callers can tell a bare-wildcard grant apart from a scoped
// one for logging purposes. ok is false if nothing matched.
func MatchCapabilityEntry(granted []string, required string) (entry string, ok bool) {
	for _, entry := range granted {
		if matchEntry(entry, required) {
			return entry, true
		}
	}
	return "", false
}

func matchEntry(entry, required string) bool {
	if entry == required {
		return true
	}
	if strings.HasSuffix(entry, "*") {
		prefix := entry[:len(entry)-1]
		return strings.HasPrefix(required, prefix)
	}
	return false
}

// MatchAudience reports whether target is named by aud, applying the same
// exact-or-trailing-wildcard rule as MatchCapability. aud is already a
// list: the scalar-or-list aud claim shape is normalized when the token's
// claims are decoded (jwt.ClaimStrings), not here.
func MatchAudience(aud []string, target string) bool {
	return MatchCapability(aud, target)
}

// MatchAudienceEntry is the audience-matcher analogue of
// MatchCapabilityEntry.
func MatchAudienceEntry(aud []string, target string) (entry string, ok bool) {
	return MatchCapabilityEntry(aud, target)
}

// IsWildcard reports whether a granted entry is the bare "*" super-grant,
// as opposed to a scoped prefix wildcard like "db:inventory:*".
func IsWildcard(entry string) bool {
	return entry == "*"
}
