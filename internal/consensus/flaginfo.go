// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package consensus

import (
	"regexp"
	"sort"
	"strings"
)

// canonicalFlagOrder is the known onionoo flag vocabulary in the display
// order spec §4.H names ("Authority first then the canonical flag list").
var canonicalFlagOrder = []string{
	"Authority",
	"BadExit",
	"Exit",
	"Fast",
	"Guard",
	"HSDir",
	"Running",
	"Stable",
	"V2Dir",
	"Valid",
	"StaleDesc",
}

var canonicalFlagRank = func() map[string]int {
	ranks := make(map[string]int, len(canonicalFlagOrder))
	for i, f := range canonicalFlagOrder {
		ranks[f] = i
	}
	return ranks
}()

// FlagDisplayInfo is the static display metadata for one flag.
type FlagDisplayInfo struct {
	Name  string
	Label string
}

var flagDisplayTable = map[string]FlagDisplayInfo{
	"Authority": {Name: "Authority", Label: "Directory Authority"},
	"BadExit":   {Name: "BadExit", Label: "Flagged Bad Exit"},
	"Exit":      {Name: "Exit", Label: "Exit Relay"},
	"Fast":      {Name: "Fast", Label: "Fast"},
	"Guard":     {Name: "Guard", Label: "Entry Guard"},
	"HSDir":     {Name: "HSDir", Label: "Hidden Service Directory"},
	"Running":   {Name: "Running", Label: "Running"},
	"Stable":    {Name: "Stable", Label: "Stable"},
	"V2Dir":     {Name: "V2Dir", Label: "Directory Cache"},
	"Valid":     {Name: "Valid", Label: "Valid"},
	"StaleDesc": {Name: "StaleDesc", Label: "Stale Descriptor"},
}

// FlagDisplay looks up the display metadata for a flag, falling back to the
// flag's own name for any flag outside the known vocabulary.
func FlagDisplay(flag string) FlagDisplayInfo {
	if info, ok := flagDisplayTable[flag]; ok {
		return info
	}
	return FlagDisplayInfo{Name: flag, Label: flag}
}

// OrderFlags sorts flags per spec §4.H: Authority first, then the canonical
// list in its known order, then any unknown flags alphabetically.
func OrderFlags(flags []string) []string {
	ordered := make([]string, len(flags))
	copy(ordered, flags)

	sort.SliceStable(ordered, func(i, j int) bool {
		ri, iKnown := canonicalFlagRank[ordered[i]]
		rj, jKnown := canonicalFlagRank[ordered[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown && !jKnown:
			return true
		case !iKnown && jKnown:
			return false
		default:
			return strings.ToLower(ordered[i]) < strings.ToLower(ordered[j])
		}
	})

	return ordered
}

var fingerprintPattern = regexp.MustCompile(`^[0-9A-F]{40}$`)

// ValidFingerprint reports whether fp is a 40-character uppercase hex
// fingerprint (spec §4.H "Fingerprint validation").
func ValidFingerprint(fp string) bool {
	return fingerprintPattern.MatchString(fp)
}
