package core

import (
	"fmt"
	"sort"
)

// minAutoCreateItems is how many auto-creatable items trigger the suggestion
const minAutoCreateItems = 3

// FilterItems drops items that are below the confidence threshold (unless low
// confidence items are shown) or of a disabled type, orders the rest by
// priority tier then confidence, and truncates to the maximum item count.
func FilterItems(items []DetectedActionItem, settings AnalysisSettings) []DetectedActionItem {
	out := make([]DetectedActionItem, 0, len(items))
	for _, item := range items {
		if !settings.typeEnabled(item.Type) {
			continue
		}
		if item.Confidence < settings.ConfidenceThreshold && !settings.ShowLowConfidence {
			continue
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].Confidence > out[j].Confidence
	})

	if settings.MaxItems > 0 && len(out) > settings.MaxItems {
		out = out[:settings.MaxItems]
	}
	return out
}

// GenerateSuggestions derives advisory nudges from filtered items
func GenerateSuggestions(items []DetectedActionItem, settings AnalysisSettings) []Suggestion {
	suggestions := []Suggestion{}

	var autoCreate, undatedDeadlines, unassigned, pressing []string
	for _, item := range items {
		if item.Confidence >= settings.AutoCreateThreshold {
			autoCreate = append(autoCreate, item.ID)
		}
		if item.Type == TypeDeadline && item.SuggestedDueDate == nil {
			undatedDeadlines = append(undatedDeadlines, item.ID)
		}
		if item.Type == TypeAssignment && item.SuggestedAssignee == "" {
			unassigned = append(unassigned, item.ID)
		}
		if item.Priority.Rank() >= PriorityHigh.Rank() {
			pressing = append(pressing, item.ID)
		}
	}

	if len(autoCreate) >= minAutoCreateItems {
		suggestions = append(suggestions, Suggestion{
			Type:    SuggestionFormatting,
			Message: fmt.Sprintf("%d items are confident enough to be created automatically", len(autoCreate)),
			ItemIDs: autoCreate,
		})
	}
	if len(items) > 1 && len(pressing)*2 > len(items) {
		suggestions = append(suggestions, Suggestion{
			Type:    SuggestionPriority,
			Message: "Most items are high priority; consider ranking them",
			ItemIDs: pressing,
		})
	}
	if len(undatedDeadlines) > 0 {
		suggestions = append(suggestions, Suggestion{
			Type:    SuggestionDeadline,
			Message: fmt.Sprintf("%d deadline items have no concrete date", len(undatedDeadlines)),
			ItemIDs: undatedDeadlines,
		})
	}
	if len(unassigned) > 0 {
		suggestions = append(suggestions, Suggestion{
			Type:    SuggestionAssignment,
			Message: fmt.Sprintf("%d assignment items have no assignee", len(unassigned)),
			ItemIDs: unassigned,
		})
	}
	return suggestions
}
