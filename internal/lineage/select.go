package lineage

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/condgraph/internal/dag"
)

// SelectSeeds merges explicit seed names with every name in all that matches
// pattern, case-insensitively. The result is sorted and free of duplicates.
// Explicit seeds are kept even when unknown; Lineage skips those.
//
// An invalid pattern returns the explicit seeds together with an error
// wrapping ErrInvalidPattern, so callers can warn and carry on.
func SelectSeeds(all, explicit []string, pattern string) ([]string, error) {
	set := make(map[string]bool)
	for _, s := range explicit {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = true
		}
	}

	var err error
	if pattern != "" {
		re, cerr := regexp.Compile("(?i)" + pattern)
		if cerr != nil {
			err = fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, cerr)
		} else {
			for _, name := range all {
				if re.MatchString(name) {
					set[name] = true
				}
			}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, err
}

// Roles classifies every node of g. Seeds are RoleSeed; otherwise a node with
// no parents is RoleStart, one with no children is RoleEnd, and the rest are
// RoleDefault. An isolated non-seed node counts as a start.
func Roles(g *dag.Graph, seeds []string) map[string]Role {
	seedSet := make(map[string]bool, len(seeds))
	for _, s := range seeds {
		seedSet[strings.TrimSpace(s)] = true
	}

	roles := make(map[string]Role, g.NodeCount())
	for _, id := range g.NodeIDs() {
		switch {
		case seedSet[id]:
			roles[id] = RoleSeed
		case len(g.GetParents(id)) == 0:
			roles[id] = RoleStart
		case len(g.GetChildren(id)) == 0:
			roles[id] = RoleEnd
		default:
			roles[id] = RoleDefault
		}
	}
	return roles
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
