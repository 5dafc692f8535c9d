package backend

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-action-extractor/internal/core"
)

const promptFormat = `You are an assistant that extracts actionable items from notes.
Find every task, deadline, assignment, reminder, follow-up or commitment in the text below.
%s
Respond with a single JSON object and nothing else, using exactly this structure:
{
  "language": "ISO 639-1 code of the text",
  "items": [
    {
      "content": "exact substring of the text that contains the item",
      "type": "one of: todo, task, action, reminder, deadline, development, follow_up, assignment, commitment, general",
      "priority": "one of: low, medium, high, urgent",
      "confidence": number between 0 and 1,
      "suggestedTitle": "short imperative title",
      "suggestedDescription": "optional longer description",
      "suggestedDueDate": "optional date as YYYY-MM-DD",
      "suggestedAssignee": "optional person responsible",
      "keywords": ["keyword"],
      "urgencyIndicators": ["words signalling urgency"],
      "assignmentIndicators": ["words signalling an assignee"]
    }
  ]
}
Copy "content" verbatim from the text. If there are no items, return an empty "items" array.

Text:
%s`

const warmUpPrompt = `Respond with {"language":"en","items":[]}`

// BuildPrompt embeds text and optional note context into the extraction prompt
func BuildPrompt(text string, actx *core.AnalysisContext) string {
	return fmt.Sprintf(promptFormat, describeContext(actx), text)
}

func describeContext(actx *core.AnalysisContext) string {
	if actx == nil {
		return ""
	}
	var lines []string
	if actx.NoteType != "" {
		lines = append(lines, fmt.Sprintf("The note is a %s.", actx.NoteType))
	}
	if actx.AssociatedPerson != "" {
		lines = append(lines, fmt.Sprintf("The note is about %s; prefer them as assignee when none is named.", actx.AssociatedPerson))
	}
	if actx.AssociatedGroup != "" {
		lines = append(lines, fmt.Sprintf("The note belongs to the group %s.", actx.AssociatedGroup))
	}
	if len(lines) == 0 {
		return ""
	}
	return "Context:\n" + strings.Join(lines, "\n") + "\n"
}
