package foundation

import (
	"cmp"
	"slices"
	"strings"
)

// SortProviders orders providers by priority, highest first, keeping
// registration order among equals. Providers declaring "before:X" or
// "after:X" are then moved next to X, in sorted order. A constraint naming
// an absent provider is ignored.
func SortProviders(providers []ServiceProvider) []ServiceProvider {
	out := slices.Clone(providers)
	slices.SortStableFunc(out, func(a, b ServiceProvider) int {
		return cmp.Compare(PriorityOf(b), PriorityOf(a))
	})

	for _, p := range slices.Clone(out) {
		before, target, ok := parseOrder(OrderOf(p))
		if !ok || target == NameOf(p) {
			continue
		}
		if slices.IndexFunc(out, func(q ServiceProvider) bool { return NameOf(q) == target }) < 0 {
			continue
		}

		from := slices.Index(out, p)
		out = slices.Delete(out, from, from+1)

		to := slices.IndexFunc(out, func(q ServiceProvider) bool { return NameOf(q) == target })
		if !before {
			to++
		}
		out = slices.Insert(out, to, p)
	}
	return out
}

// parseOrder splits "before:X" / "after:X".
func parseOrder(order string) (before bool, target string, ok bool) {
	dir, target, found := strings.Cut(strings.TrimSpace(order), ":")
	if !found || target == "" {
		return false, "", false
	}
	switch strings.ToLower(dir) {
	case "before":
		return true, target, true
	case "after":
		return false, target, true
	}
	return false, "", false
}
