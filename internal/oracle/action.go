package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"diffscope/internal/types"
)

// Action is the oracle's decision: either a request for more evidence or
// a final conclusion. Responses are validated on ingress; anything that
// does not decode into one of the two variants is rejected.
type Action interface {
	isAction()
}

// RequestContext asks for usage evidence about specific symbols.
type RequestContext struct {
	Items []types.SymbolQuery
	Note  string
}

// Verdict carries the final conclusion for the unit under review.
type Verdict struct {
	Result types.Conclusion
}

func (RequestContext) isAction() {}
func (Verdict) isAction()        {}

// HasActionableItems reports whether any requested item names a symbol.
func (r RequestContext) HasActionableItems() bool {
	for _, item := range r.Items {
		if strings.TrimSpace(item.Name) != "" {
			return true
		}
	}
	return false
}

type envelope struct {
	Action string `json:"action"`
	Params *struct {
		SearchItems  []types.SymbolQuery `json:"search_items"`
		AnalysisNote string              `json:"analysis_note"`
	} `json:"params"`
	Result *types.Conclusion `json:"result"`
}

// Decode parses a raw model response into an Action. It tolerates prose
// and markdown fences around the JSON object but is strict about the
// object's shape.
func Decode(raw string) (Action, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	switch env.Action {
	case "request_context":
		if env.Params == nil {
			return nil, fmt.Errorf("request_context action missing params")
		}
		return RequestContext{
			Items: env.Params.SearchItems,
			Note:  env.Params.AnalysisNote,
		}, nil
	case "conclusion":
		if env.Result == nil {
			return nil, fmt.Errorf("conclusion action missing result")
		}
		return Verdict{Result: *env.Result}, nil
	case "":
		return nil, fmt.Errorf("response missing action field")
	default:
		return nil, fmt.Errorf("unknown action %q", env.Action)
	}
}

// extractJSON pulls the first balanced top-level JSON object out of text
// that may wrap it in markdown fences or commentary.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
