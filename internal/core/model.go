package core

import (
	"math"
	"time"
)

// ItemType is the closed set of tags an action item can carry
type ItemType string

const (
	TypeTodo        ItemType = "todo"
	TypeTask        ItemType = "task"
	TypeAction      ItemType = "action"
	TypeReminder    ItemType = "reminder"
	TypeDeadline    ItemType = "deadline"
	TypeDevelopment ItemType = "development"
	TypeFollowUp    ItemType = "follow_up"
	TypeAssignment  ItemType = "assignment"
	TypeCommitment  ItemType = "commitment"
	TypeGeneral     ItemType = "general"
)

// AllItemTypes lists every valid item type
var AllItemTypes = []ItemType{
	TypeTodo, TypeTask, TypeAction, TypeReminder, TypeDeadline,
	TypeDevelopment, TypeFollowUp, TypeAssignment, TypeCommitment, TypeGeneral,
}

// ParseItemType maps a raw tag onto the closed set, defaulting to general
func ParseItemType(raw string) ItemType {
	if t, ok := LookupItemType(raw); ok {
		return t
	}
	return TypeGeneral
}

// LookupItemType reports whether raw names a known item type
func LookupItemType(raw string) (ItemType, bool) {
	for _, t := range AllItemTypes {
		if string(t) == raw {
			return t, true
		}
	}
	return "", false
}

// Priority is the urgency tier of an item
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority maps a raw tag onto the four tiers, defaulting to medium
func ParsePriority(raw string) Priority {
	switch Priority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(raw)
	default:
		return PriorityMedium
	}
}

// Rank orders priorities, higher is more urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// AnalysisMethod identifies which path produced an item or result
type AnalysisMethod string

const (
	MethodAI     AnalysisMethod = "ai"
	MethodRegex  AnalysisMethod = "regex"
	MethodHybrid AnalysisMethod = "hybrid"
)

// ModelRegexFallback is reported as the model when the pattern engine served a request
const ModelRegexFallback = "regex-fallback"

// TextPosition is a byte range in the caller's original text
type TextPosition struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ItemMetadata carries auxiliary signals about a detected item
type ItemMetadata struct {
	Language             string   `json:"language,omitempty"`
	Keywords             []string `json:"keywords,omitempty"`
	UrgencyIndicators    []string `json:"urgencyIndicators,omitempty"`
	AssignmentIndicators []string `json:"assignmentIndicators,omitempty"`
}

// DetectedActionItem is one candidate actionable unit extracted from text
type DetectedActionItem struct {
	ID                   string         `json:"id"`
	Content              string         `json:"content"`
	Type                 ItemType       `json:"type"`
	Priority             Priority       `json:"priority"`
	Confidence           float64        `json:"confidence"`
	SuggestedTitle       string         `json:"suggestedTitle"`
	SuggestedDescription string         `json:"suggestedDescription,omitempty"`
	SuggestedDueDate     *time.Time     `json:"suggestedDueDate,omitempty"`
	SuggestedAssignee    string         `json:"suggestedAssignee,omitempty"`
	TextPosition         TextPosition   `json:"textPosition"`
	Context              string         `json:"context"`
	DetectionMethod      AnalysisMethod `json:"detectionMethod"`
	CreatedAt            time.Time      `json:"createdAt"`
	Metadata             ItemMetadata   `json:"metadata"`
}

// ClampConfidence keeps a score inside [0,1]
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// ResultMetadata describes how a result was produced
type ResultMetadata struct {
	ProcessingTime   time.Duration  `json:"processingTime"`
	ModelUsed        string         `json:"modelUsed"`
	AnalysisMethod   AnalysisMethod `json:"analysisMethod"`
	TextLength       int            `json:"textLength"`
	DetectedLanguage string         `json:"detectedLanguage,omitempty"`
	CacheHit         bool           `json:"cacheHit"`
	Chunked          bool           `json:"chunked,omitempty"`
}

// SuggestionType tags an advisory suggestion
type SuggestionType string

const (
	SuggestionFormatting SuggestionType = "formatting"
	SuggestionPriority   SuggestionType = "priority"
	SuggestionAssignment SuggestionType = "assignment"
	SuggestionDeadline   SuggestionType = "deadline"
)

// Suggestion is an advisory nudge attached to a result
type Suggestion struct {
	Type    SuggestionType `json:"type"`
	Message string         `json:"message"`
	ItemIDs []string       `json:"itemIds,omitempty"`
}

// AnalysisResult is the outcome of one full analysis pass. It is treated as
// immutable once returned; use Clone before changing anything.
type AnalysisResult struct {
	Items       []DetectedActionItem `json:"items"`
	Metadata    ResultMetadata       `json:"metadata"`
	Suggestions []Suggestion         `json:"suggestions"`
	StartedAt   time.Time            `json:"startedAt"`
	CompletedAt time.Time            `json:"completedAt"`
}

// Clone returns a copy that shares no slices with r
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = append(make([]DetectedActionItem, 0, len(r.Items)), r.Items...)
	out.Suggestions = append(make([]Suggestion, 0, len(r.Suggestions)), r.Suggestions...)
	return &out
}

// AnalysisContext is optional caller-supplied context about the note being edited
type AnalysisContext struct {
	NoteType         string `json:"noteType,omitempty"`
	AssociatedPerson string `json:"associatedPerson,omitempty"`
	AssociatedGroup  string `json:"associatedGroup,omitempty"`
}

// AnalyzeOptions tune a single analysis request
type AnalyzeOptions struct {
	// DisableAI forces the pattern engine
	DisableAI bool `json:"disableAI,omitempty"`
	// DisableCache bypasses cache reads and writes for this request
	DisableCache bool `json:"disableCache,omitempty"`
	// Model overrides the configured model name
	Model string `json:"model,omitempty"`
	// Debounce overrides the debounce interval on the debounced path. It is
	// not part of the wire form; the HTTP API only runs immediate analyses.
	Debounce time.Duration `json:"-"`
}

// AnalysisRequest is a queued unit of work
type AnalysisRequest struct {
	ID         string
	Text       string
	Context    *AnalysisContext
	EnqueuedAt time.Time
	Priority   int
	seq        uint64
}

// PerformanceMetrics is a running aggregate over every analysis
type PerformanceMetrics struct {
	TotalAnalyses  int64         `json:"totalAnalyses"`
	AverageLatency time.Duration `json:"averageLatency"`
	CacheHitRate   float64       `json:"cacheHitRate"`
	ErrorRate      float64       `json:"errorRate"`
}

// EventType enumerates analysis lifecycle notifications
type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
	EventCancelled EventType = "cancelled"
)

// AnalysisEvent is delivered to registered event listeners
type AnalysisEvent struct {
	Type      EventType   `json:"type"`
	RequestID string      `json:"requestId"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ProgressData is the payload of a progress event
type ProgressData struct {
	QueueLength int `json:"queueLength"`
}

// Availability reports the local inference backend state
type Availability struct {
	Installed bool `json:"installed"`
	Running   bool `json:"running"`
}

// BackendReply is a validated reply from the AI backend
type BackendReply struct {
	Language string
	Items    []DetectedActionItem
}

// HealthStatus is the coarse outcome of a health check
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthReport is returned by the orchestrator health check
type HealthReport struct {
	Status  HealthStatus    `json:"status"`
	Details map[string]bool `json:"details"`
}
