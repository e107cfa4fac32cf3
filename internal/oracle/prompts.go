package oracle

import (
	"fmt"
	"sort"
	"strings"
	"text/template"

	"diffscope/internal/types"
)

const decisionPromptTemplate = `You are reviewing a code change for ripple effects across the codebase.

## Diff under review
{{.DiffText}}

## Structural summary of changed files
{{.StructuralSummary}}
{{if .CollectedContext}}
## Evidence gathered so far
{{.CollectedContext}}
{{end}}
## Your task (round {{.Iteration}} of {{.MaxIterations}})
Decide whether you have enough evidence to judge the impact of this change.

If you need to see how a symbol is used elsewhere, respond with:
{"action": "request_context", "params": {"search_items": [{"name": "symbolName", "type": "function|method|class|interface|struct|variable", "reason": "why this matters"}], "analysis_note": "what you are investigating"}}

Only request symbols that are NOT already covered in the gathered evidence.

If you can conclude, respond with:
{"action": "conclusion", "result": {"has_critical_issues": false, "critical_issues": [], "potential_risks": [], "impact_chains": [], "affected_features": [], "summary": "one paragraph verdict"}}

Respond with a single JSON object and nothing else.`

const resubmitPromptTemplate = `Your previous response could not be parsed: %s

Previous response:
%s

Respond again with a single valid JSON object using the "request_context" or "conclusion" action shape. No prose, no markdown fences.`

var decisionTmpl = template.Must(template.New("decision").Parse(decisionPromptTemplate))

type promptData struct {
	DiffText          string
	StructuralSummary string
	CollectedContext  string
	Iteration         int
	MaxIterations     int
}

func buildDecisionPrompt(ev Evidence) (string, error) {
	var b strings.Builder
	err := decisionTmpl.Execute(&b, promptData{
		DiffText:          ev.DiffText,
		StructuralSummary: ev.StructuralSummary,
		CollectedContext:  renderCollected(ev.Collected),
		Iteration:         ev.Iteration + 1,
		MaxIterations:     ev.MaxIterations,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render decision prompt: %w", err)
	}
	return b.String(), nil
}

// renderCollected formats the evidence cache for the prompt, symbols in
// name order so repeated runs produce identical prompts.
func renderCollected(collected types.CollectedContext) string {
	if len(collected) == 0 {
		return ""
	}

	names := make([]string, 0, len(collected))
	for name := range collected {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		entry := collected[name]
		fmt.Fprintf(&b, "### %s (%s)\n", name, entry.Kind)
		if entry.Reason != "" {
			fmt.Fprintf(&b, "Requested because: %s\n", entry.Reason)
		}
		if entry.Status != "" {
			fmt.Fprintf(&b, "Status: %s\n", entry.Status)
		}
		if len(entry.UsedInFiles) > 0 {
			fmt.Fprintf(&b, "Used in %d places across: %s\n",
				entry.UsageCount, strings.Join(entry.UsedInFiles, ", "))
		}
		for _, sn := range entry.Snippets {
			fmt.Fprintf(&b, "\n%s:%d (%s, lines %d-%d, %s):\n```\n%s\n```\n",
				sn.File, sn.Line, sn.Enclosing, sn.StartLine, sn.EndLine, sn.Method, sn.Source)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
