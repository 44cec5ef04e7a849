package scan

import (
	"sort"
	"strings"
)

// DefaultMerger deduplicates scan results by address. Results from the
// same address are collapsed into one, richer fields winning.
type DefaultMerger struct{}

// NewDefaultMerger creates the default merger.
func NewDefaultMerger() *DefaultMerger {
	return &DefaultMerger{}
}

// Merge collapses duplicate addresses. Results without an address are
// kept as-is; output is name-ordered for stable responses.
func (m *DefaultMerger) Merge(results []*Result) []*Result {
	byAddress := make(map[string]*Result)

	merged := make([]*Result, 0, len(results))

	for _, r := range results {
		key := strings.ToUpper(strings.TrimSpace(r.Address))
		if key == "" {
			merged = append(merged, r)

			continue
		}

		existing, ok := byAddress[key]
		if !ok {
			clone := *r
			byAddress[key] = &clone
			merged = append(merged, &clone)

			continue
		}

		mergeResult(existing, r)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return strings.ToLower(merged[i].Name) < strings.ToLower(merged[j].Name)
	})

	return merged
}

// mergeResult fills gaps in dst from src.
func mergeResult(dst, src *Result) {
	if dst.Name == "" || dst.Name == "Unknown device" {
		if src.Name != "" {
			dst.Name = src.Name
		}
	}

	if dst.Signal == "" {
		dst.Signal = src.Signal
	}

	if dst.Security == "" {
		dst.Security = src.Security
	}

	if dst.Hostname == "" {
		dst.Hostname = src.Hostname
	}

	dst.Paired = dst.Paired || src.Paired
}
