// Package role canonicalizes the participation roles found in execution
// guides and defines the priority used when one doctor holds more than one
// role in the same procedure.
package role

import "strings"

// Role is a canonical participation role. Unrecognized raw tokens are kept
// verbatim as Role values so no participation is ever dropped.
type Role string

const (
	Surgeon          Role = "Surgeon"
	Anesthesiologist Role = "Anesthesiologist"
	FirstAssistant   Role = "FirstAssistant"
	SecondAssistant  Role = "SecondAssistant"
	GenericAssistant Role = "GenericAssistant"
)

// accent folding for the handful of letters that appear in role tokens
var accentFolder = strings.NewReplacer(
	"ã", "a", "á", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
)

var canonical = map[string]Role{
	"cirurgiao":         Surgeon,
	"anestesista":       Anesthesiologist,
	"primeiro auxiliar": FirstAssistant,
	"segundo auxiliar":  SecondAssistant,
	"auxiliar":          GenericAssistant,
}

// Canonical maps a raw document token to its canonical role. The match is
// case-insensitive and accent-tolerant ("Cirurgião" and "Cirurgiao" both
// resolve to Surgeon). Unrecognized tokens are returned verbatim.
func Canonical(raw string) Role {
	key := accentFolder.Replace(strings.ToLower(strings.TrimSpace(raw)))
	key = strings.Join(strings.Fields(key), " ")
	if r, ok := canonical[key]; ok {
		return r
	}
	return Role(strings.TrimSpace(raw))
}

// Priority orders roles for exercised-role selection. Higher wins; a later
// participation replaces an earlier one only on strictly greater priority,
// so ties keep the first-seen role.
func Priority(r Role) int {
	switch r {
	case Surgeon:
		return 5
	case FirstAssistant:
		return 4
	case SecondAssistant:
		return 3
	case GenericAssistant:
		return 2
	case Anesthesiologist:
		return 1
	default:
		return 0
	}
}
