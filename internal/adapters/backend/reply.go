package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/llm-action-extractor/internal/core"
	"golang.org/x/text/language"
)

var (
	// ErrNoCompletion is returned when a transport produced no usable completion
	ErrNoCompletion = errors.New("no completion returned")
	// ErrMalformedReply is returned when a completion is not the expected JSON object
	ErrMalformedReply = errors.New("malformed reply")
)

// defaultConfidence is used when the reply carries no usable confidence
const defaultConfidence = 0.5

// replyPayload accepts both the HTTP reply shape (language/items) and the
// command-line shape (detectedLanguage/tasks)
type replyPayload struct {
	Language         string      `json:"language"`
	DetectedLanguage string      `json:"detectedLanguage"`
	Items            []replyItem `json:"items"`
	Tasks            []replyItem `json:"tasks"`
}

// replyItem is one untyped item as the model produced it
type replyItem struct {
	Content              string          `json:"content"`
	Type                 string          `json:"type"`
	Priority             string          `json:"priority"`
	Confidence           json.RawMessage `json:"confidence"`
	SuggestedTitle       string          `json:"suggestedTitle"`
	Title                string          `json:"title"`
	SuggestedDescription string          `json:"suggestedDescription"`
	SuggestedDueDate     string          `json:"suggestedDueDate"`
	SuggestedAssignee    string          `json:"suggestedAssignee"`
	Keywords             []string        `json:"keywords"`
	UrgencyIndicators    []string        `json:"urgencyIndicators"`
	AssignmentIndicators []string        `json:"assignmentIndicators"`
}

// ParseReply decodes a raw completion into validated items. Unknown types and
// priorities are coerced to general and medium, confidence is clamped to
// [0,1], and positions are recovered from the first occurrence of the content
// in text.
func ParseReply(raw string, text string) (*core.BackendReply, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}

	lang := payload.Language
	if lang == "" {
		lang = payload.DetectedLanguage
	}
	lang = normalizeLanguage(lang)

	rawItems := payload.Items
	if len(rawItems) == 0 {
		rawItems = payload.Tasks
	}

	now := time.Now()
	items := make([]core.DetectedActionItem, 0, len(rawItems))
	for _, ri := range rawItems {
		content := strings.TrimSpace(ri.Content)
		if content == "" {
			continue
		}
		title := ri.SuggestedTitle
		if title == "" {
			title = ri.Title
		}
		if title == "" {
			title = content
		}
		items = append(items, core.DetectedActionItem{
			ID:                   uuid.NewString(),
			Content:              content,
			Type:                 core.ParseItemType(strings.ToLower(strings.TrimSpace(ri.Type))),
			Priority:             core.ParsePriority(strings.ToLower(strings.TrimSpace(ri.Priority))),
			Confidence:           core.ClampConfidence(parseConfidence(ri.Confidence)),
			SuggestedTitle:       title,
			SuggestedDescription: ri.SuggestedDescription,
			SuggestedDueDate:     parseDueDate(ri.SuggestedDueDate),
			SuggestedAssignee:    strings.TrimPrefix(strings.TrimSpace(ri.SuggestedAssignee), "@"),
			TextPosition:         core.LocateContent(text, content),
			DetectionMethod:      core.MethodAI,
			CreatedAt:            now,
			Metadata: core.ItemMetadata{
				Language:             lang,
				Keywords:             ri.Keywords,
				UrgencyIndicators:    ri.UrgencyIndicators,
				AssignmentIndicators: ri.AssignmentIndicators,
			},
		})
	}

	return &core.BackendReply{Language: lang, Items: items}, nil
}

// decodePayload parses the completion, extracting the outermost JSON object
// when the model wrapped it in prose
func decodePayload(raw string) (*replyPayload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoCompletion
	}

	var payload replyPayload
	err := json.Unmarshal([]byte(raw), &payload)
	if err == nil {
		return &payload, nil
	}

	jsonStart := strings.IndexByte(raw, '{')
	jsonEnd := strings.LastIndexByte(raw, '}') + 1
	if jsonStart < 0 || jsonStart >= jsonEnd {
		return nil, fmt.Errorf("%w: no JSON object in completion: %v", ErrMalformedReply, err)
	}
	if err := json.Unmarshal([]byte(raw[jsonStart:jsonEnd]), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return &payload, nil
}

func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return defaultConfidence
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			if v > 1 {
				v /= 100
			}
			return v
		}
	}
	return defaultConfidence
}

var dueDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDueDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// normalizeLanguage reduces a language tag to its base, e.g. "en-US" -> "en"
func normalizeLanguage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
