// Package tool implements the callable capabilities agents may invoke while
// executing a task: reading the uploaded document, deterministic investment
// scoring, and keyword-based risk scanning.
package tool

import "context"

// Tool is a callable capability bound to an agent at construction time.
type Tool interface {
	Name() string
	Description() string

	// Run executes the tool. For the document reader the input is a file
	// path; for the analysis tools it is extracted document text.
	Run(ctx context.Context, input string) (string, error)
}

// Tool names referenced by agent and task definitions.
const (
	NameReadDocument      = "read_financial_document"
	NameAnalyzeInvestment = "analyze_investment"
	NameAssessRisk        = "assess_risk"
)

// Registry resolves tool names to implementations.
type Registry map[string]Tool

// NewRegistry builds a Registry from the given tools, keyed by name.
func NewRegistry(tools ...Tool) Registry {
	r := make(Registry, len(tools))
	for _, t := range tools {
		r[t.Name()] = t
	}
	return r
}

// Defaults returns the registry with all built-in tools.
func Defaults() Registry {
	return NewRegistry(Reader{}, Investment{}, Risk{})
}

// Get returns the tool registered under name.
func (r Registry) Get(name string) (Tool, bool) {
	t, ok := r[name]
	return t, ok
}
