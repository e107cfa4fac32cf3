package types

// DefinitionKind classifies a parsed definition.
type DefinitionKind string

const (
	KindClass     DefinitionKind = "class"
	KindInterface DefinitionKind = "interface"
	KindStruct    DefinitionKind = "struct"
	KindFunction  DefinitionKind = "function"
	KindMethod    DefinitionKind = "method"
	KindVariable  DefinitionKind = "variable"
)

// Definition is a named definition span extracted from a source file.
// Immutable once produced by a parser.
type Definition struct {
	Name       string
	Kind       DefinitionKind
	FilePath   string
	StartLine  int // 1-based, inclusive
	EndLine    int // 1-based, inclusive
	Params     []string
	ReturnType string
	Doc        string
	Enclosing  string // name of the enclosing type, if any
}

// SearchMatch is one matching line found by the search engine.
type SearchMatch struct {
	FilePath   string
	LineNumber int
	LineText   string
	Before     []string
	After      []string
}

// SymbolQuery describes a symbol whose usages should be located.
// Reason is provenance text only and plays no part in matching.
type SymbolQuery struct {
	Name   string `json:"name"`
	Kind   string `json:"type"`
	Reason string `json:"reason"`
}

// EvidenceEntry holds everything collected about one symbol's usage.
type EvidenceEntry struct {
	Kind          string
	Reason        string
	UsedInFiles   []string
	UsageCount    int
	SampleMatches map[string][]string
	Snippets      []Snippet
	Status        string
}

// CollectedContext accumulates evidence per symbol name. Append-only for
// the life of a session; a name already present is never fetched again.
type CollectedContext map[string]*EvidenceEntry

// ImpactChainEntry records one evidence-gathering round.
type ImpactChainEntry struct {
	Iteration int
	Requested []SymbolQuery
	Note      string
}

// ExtractionMethod describes how a snippet was produced.
type ExtractionMethod string

const (
	ExtractionComplete    ExtractionMethod = "complete"
	ExtractionPartial     ExtractionMethod = "partial"
	ExtractionApproximate ExtractionMethod = "approximate"
)

// Snippet is a block of source surrounding one search match.
type Snippet struct {
	File        string
	Line        int
	Enclosing   string
	Kind        string
	StartLine   int
	EndLine     int
	Source      string
	MatchedLine string
	Method      ExtractionMethod
}

// SubmissionUnit is one independently reviewable slice of a partitioned
// change. The file sets of all units exactly partition the changed files.
type SubmissionUnit struct {
	Title             string
	Files             []string
	DiffText          string
	ByteSize          int
	IsDependencyGroup bool
}

// Conclusion is the final verdict for one submission unit.
type Conclusion struct {
	HasCriticalIssues bool     `json:"has_critical_issues"`
	CriticalIssues    []string `json:"critical_issues"`
	PotentialRisks    []string `json:"potential_risks"`
	ImpactChains      []string `json:"impact_chains"`
	AffectedFeatures  []string `json:"affected_features"`
	Summary           string   `json:"summary"`
	TotalIterations   int      `json:"-"`
	ImpactChainDepth  int      `json:"-"`
}
