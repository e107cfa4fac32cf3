package oracle

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diffscope/internal/types"
)

func TestDecodeRequestContext(t *testing.T) {
	raw := `{"action": "request_context", "params": {"search_items": [{"name": "parseHeader", "type": "function", "reason": "signature changed"}], "analysis_note": "checking callers"}}`

	action, err := Decode(raw)
	require.NoError(t, err)

	req, ok := action.(RequestContext)
	require.True(t, ok)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "parseHeader", req.Items[0].Name)
	assert.Equal(t, "function", req.Items[0].Kind)
	assert.Equal(t, "checking callers", req.Note)
	assert.True(t, req.HasActionableItems())
}

func TestDecodeConclusion(t *testing.T) {
	raw := `{"action": "conclusion", "result": {"has_critical_issues": true, "critical_issues": ["callers of parseHeader not updated"], "potential_risks": [], "impact_chains": ["parseHeader -> handleRequest"], "affected_features": ["ingest"], "summary": "breaking change"}}`

	action, err := Decode(raw)
	require.NoError(t, err)

	verdict, ok := action.(Verdict)
	require.True(t, ok)
	assert.True(t, verdict.Result.HasCriticalIssues)
	assert.Equal(t, []string{"callers of parseHeader not updated"}, verdict.Result.CriticalIssues)
	assert.Equal(t, "breaking change", verdict.Result.Summary)
}

func TestDecodeToleratesWrapping(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "markdown fence",
			raw:  "```json\n{\"action\": \"conclusion\", \"result\": {\"summary\": \"ok\"}}\n```",
		},
		{
			name: "bare fence",
			raw:  "```\n{\"action\": \"conclusion\", \"result\": {\"summary\": \"ok\"}}\n```",
		},
		{
			name: "leading prose",
			raw:  "Here is my verdict:\n{\"action\": \"conclusion\", \"result\": {\"summary\": \"ok\"}}",
		},
		{
			name: "braces inside strings",
			raw:  `{"action": "conclusion", "result": {"summary": "watch for { and } in templates"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := Decode(tt.raw)
			require.NoError(t, err)
			_, ok := action.(Verdict)
			assert.True(t, ok)
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no json", "I think this change is fine."},
		{"missing action", `{"params": {}}`},
		{"unknown action", `{"action": "escalate"}`},
		{"request without params", `{"action": "request_context"}`},
		{"conclusion without result", `{"action": "conclusion"}`},
		{"truncated object", `{"action": "conclusion", "result": {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestHasActionableItems(t *testing.T) {
	assert.False(t, RequestContext{}.HasActionableItems())
	assert.False(t, RequestContext{Items: []types.SymbolQuery{{Name: "  "}}}.HasActionableItems())
	assert.True(t, RequestContext{Items: []types.SymbolQuery{{Name: ""}, {Name: "x"}}}.HasActionableItems())
}

type scriptedProvider struct {
	responses []string
	calls     int
	err       error
}

func (p *scriptedProvider) GetModel() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if p.calls >= len(p.responses) {
		return "", fmt.Errorf("no scripted response for call %d", p.calls)
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func TestLLMOracleResubmitsOnMalformedResponse(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"sure, here you go",
		`{"action": "conclusion", "result": {"summary": "fine"}}`,
	}}
	o := NewLLMOracle(provider, 3, nil)

	action, err := o.Decide(context.Background(), Evidence{DiffText: "+x", MaxIterations: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)

	verdict, ok := action.(Verdict)
	require.True(t, ok)
	assert.Equal(t, "fine", verdict.Result.Summary)
}

func TestLLMOracleGivesUpAfterRetries(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"nope", "still nope", "nope again"}}
	o := NewLLMOracle(provider, 3, nil)

	_, err := o.Decide(context.Background(), Evidence{DiffText: "+x", MaxIterations: 2})
	require.Error(t, err)
	assert.Equal(t, 3, provider.calls)
}

func TestLLMOraclePropagatesProviderError(t *testing.T) {
	provider := &scriptedProvider{err: fmt.Errorf("connection refused")}
	o := NewLLMOracle(provider, 3, nil)

	_, err := o.Decide(context.Background(), Evidence{DiffText: "+x", MaxIterations: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle call failed")
}

func TestRenderCollectedDeterministic(t *testing.T) {
	collected := types.CollectedContext{
		"zeta": {Kind: "function", UsedInFiles: []string{"a.go"}, UsageCount: 1},
		"alpha": {Kind: "class", Reason: "renamed", UsedInFiles: []string{"b.go", "c.go"}, UsageCount: 4,
			Snippets: []types.Snippet{{File: "b.go", Line: 3, Enclosing: "loadAll", StartLine: 1, EndLine: 9, Source: "func loadAll() {}", Method: types.ExtractionComplete}}},
	}

	first := renderCollected(collected)
	second := renderCollected(collected)
	assert.Equal(t, first, second)
	assert.Less(t, // alpha section renders before zeta
		strings.Index(first, "### alpha"), strings.Index(first, "### zeta"))
}
