package core

import (
	"sort"
)

// Deduplicate merges items sharing a normalized content key, keeping the more
// confident one (the earlier one on a tie), and sorts by descending confidence.
func Deduplicate(items []DetectedActionItem) []DetectedActionItem {
	index := make(map[string]int, len(items))
	out := make([]DetectedActionItem, 0, len(items))

	for _, item := range items {
		key := NormalizeKey(item.Content)
		if i, ok := index[key]; ok {
			if item.Confidence > out[i].Confidence {
				out[i] = item
			}
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
