package pattern

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mikey/llm-action-extractor/internal/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxTitleRunes bounds the suggested title length
const maxTitleRunes = 60

// signalBoost is added to the base confidence for every extra matching rule
const signalBoost = 0.05

// maxConfidence caps what rule matching alone may claim
const maxConfidence = 0.95

// rule maps a cue to an item type. Rules are ordered: the first match
// decides the type, later matches only raise the confidence.
type rule struct {
	itemType   core.ItemType
	cue        *regexp.Regexp
	confidence float64
}

var rules = []rule{
	{core.TypeTodo, regexp.MustCompile(`(?i)(?:^\s*[-*]\s*\[\s?\]|\btodo\b|\bto-do\b)`), 0.85},
	{core.TypeDeadline, regexp.MustCompile(`(?i)\b(?:deadline|due (?:by|on|date)|due)\b`), 0.8},
	{core.TypeFollowUp, regexp.MustCompile(`(?i)\bfollow[- ]?up\b|\bcheck back\b|\bcircle back\b`), 0.75},
	{core.TypeReminder, regexp.MustCompile(`(?i)\bremind(?: me)?\b|\bremember to\b|\bdon'?t forget\b`), 0.75},
	{core.TypeAssignment, regexp.MustCompile(`(?i)(?:^|\s)@\w+|\bassign(?:ed)? to\b`), 0.7},
	{core.TypeDevelopment, regexp.MustCompile(`(?i)\b(?:fix|bug|deploy|refactor|implement|merge|release|debug)\b`), 0.65},
	{core.TypeCommitment, regexp.MustCompile(`(?i)\b(?:i'?ll|i will|we'?ll|we will|i promise|i commit)\b`), 0.65},
	{core.TypeAction, regexp.MustCompile(`(?i)\b(?:needs? to|must|have to|has to|should|please|make sure)\b`), 0.7},
	{core.TypeTask, regexp.MustCompile(`(?i)\b(?:task|action item)\b`), 0.65},
}

var (
	sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
	prefixRe   = regexp.MustCompile(`(?i)^\s*(?:[-*]\s*\[\s?\]\s*|[-*]\s+|todo:?\s*|to-do:?\s*)`)
	mentionRe  = regexp.MustCompile(`(?:^|\s)@(\w[\w.-]*)`)
	assignRe   = regexp.MustCompile(`(?i)\bassign(?:ed)? to (\w+)`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	weekdayRe  = regexp.MustCompile(`(?i)\b(?:by|on|before|until|next)?\s*(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	relativeRe = regexp.MustCompile(`(?i)\b(today|tonight|eod|end of day|tomorrow|next week)\b`)

	urgentRe = regexp.MustCompile(`(?i)\b(?:urgent|urgently|asap|immediately|critical|right away|blocker)\b`)
	highRe   = regexp.MustCompile(`(?i)\b(?:important|high priority|today|tonight|eod|soon|tomorrow)\b`)
	lowRe    = regexp.MustCompile(`(?i)\b(?:low priority|someday|eventually|when possible|nice to have)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Engine is a deterministic rule-based pattern engine. It splits text into
// sentences and reports every sentence carrying an action cue.
type Engine struct {
	now  func() time.Time
	fold cases.Caser
}

// NewEngine creates a pattern engine. now resolves relative due dates and
// may be nil for the wall clock.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		now:  now,
		fold: cases.Lower(language.Und),
	}
}

// DetectPatterns returns one candidate item per sentence with an action cue
func (e *Engine) DetectPatterns(text string) []core.DetectedActionItem {
	items := []core.DetectedActionItem{}
	for _, span := range sentenceRe.FindAllStringIndex(text, -1) {
		start, end := trimSpan(text, span[0], span[1])
		if start >= end {
			continue
		}
		if item, ok := e.detectSentence(text[start:end], start); ok {
			items = append(items, item)
		}
	}
	return items
}

func (e *Engine) detectSentence(sentence string, offset int) (core.DetectedActionItem, bool) {
	var (
		itemType   core.ItemType
		confidence float64
		keywords   []string
	)
	for _, r := range rules {
		cue := r.cue.FindString(sentence)
		if cue == "" {
			continue
		}
		keywords = append(keywords, e.fold.String(strings.TrimSpace(cue)))
		if itemType == "" {
			itemType = r.itemType
			confidence = r.confidence
		} else {
			confidence += signalBoost
		}
	}
	if itemType == "" {
		return core.DetectedActionItem{}, false
	}
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	urgency := e.foldAll(urgentRe.FindAllString(sentence, -1))
	assignee, assignment := assigneeOf(sentence)

	return core.DetectedActionItem{
		Content:           sentence,
		Type:              itemType,
		Priority:          priorityOf(sentence, urgency),
		Confidence:        confidence,
		SuggestedTitle:    titleOf(sentence),
		SuggestedDueDate:  e.dueDateOf(sentence),
		SuggestedAssignee: assignee,
		TextPosition:      core.TextPosition{Start: offset, End: offset + len(sentence)},
		DetectionMethod:   core.MethodRegex,
		Metadata: core.ItemMetadata{
			Keywords:             keywords,
			UrgencyIndicators:    urgency,
			AssignmentIndicators: assignment,
		},
	}, true
}

func (e *Engine) foldAll(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = e.fold.String(w)
	}
	return out
}

// dueDateOf resolves the first date cue to a calendar day in local time
func (e *Engine) dueDateOf(sentence string) *time.Time {
	now := e.now()
	day := func(offset int) *time.Time {
		d := time.Date(now.Year(), now.Month(), now.Day()+offset, 0, 0, 0, 0, now.Location())
		return &d
	}

	if m := isoDateRe.FindStringSubmatch(sentence); m != nil {
		if d, err := time.ParseInLocation("2006-01-02", m[1], now.Location()); err == nil {
			return &d
		}
	}
	if m := relativeRe.FindStringSubmatch(sentence); m != nil {
		switch strings.ToLower(m[1]) {
		case "tomorrow":
			return day(1)
		case "next week":
			return day(7)
		default:
			return day(0)
		}
	}
	if m := weekdayRe.FindStringSubmatch(sentence); m != nil {
		target := weekdays[strings.ToLower(m[1])]
		ahead := (int(target) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return day(ahead)
	}
	return nil
}

func priorityOf(sentence string, urgency []string) core.Priority {
	switch {
	case len(urgency) > 0:
		return core.PriorityUrgent
	case highRe.MatchString(sentence):
		return core.PriorityHigh
	case lowRe.MatchString(sentence):
		return core.PriorityLow
	}
	return core.PriorityMedium
}

func assigneeOf(sentence string) (string, []string) {
	var indicators []string
	assignee := ""
	for _, m := range mentionRe.FindAllStringSubmatch(sentence, -1) {
		indicators = append(indicators, "@"+m[1])
		if assignee == "" {
			assignee = m[1]
		}
	}
	if m := assignRe.FindStringSubmatch(sentence); m != nil {
		indicators = append(indicators, strings.TrimSpace(m[0]))
		if assignee == "" {
			assignee = m[1]
		}
	}
	return assignee, indicators
}

// titleOf strips list markers and trailing punctuation, capitalizes the first
// letter and cuts the result on a word boundary
func titleOf(sentence string) string {
	title := strings.TrimSpace(prefixRe.ReplaceAllString(sentence, ""))
	title = strings.TrimRight(title, ".!?,;: ")
	if title == "" {
		title = strings.TrimSpace(sentence)
	}

	if r, size := utf8.DecodeRuneInString(title); r != utf8.RuneError {
		title = string(unicode.ToUpper(r)) + title[size:]
	}

	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)[:maxTitleRunes]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// trimSpan narrows [start,end) to exclude surrounding whitespace
func trimSpan(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}
