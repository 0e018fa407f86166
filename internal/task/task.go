// Package task defines the templated units of work the pipeline executes.
// Descriptions substitute exactly two variables, {file_path} and {query};
// inter-task data passing is explicit runner state, never template variables.
package task

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/finsight/finsight/internal/agent"
	"github.com/finsight/finsight/internal/tool"
)

// Task names, in execution order.
const (
	NameVerifyDocument  = "verify_document"
	NameExtractData     = "extract_financial_data"
	NameAnalyzeHealth   = "analyze_financial_health"
	NameRecommendations = "investment_recommendations"
	NameGenerateReport  = "generate_report"
)

// Spec binds a description template and expected output to one agent role
// and its tools. DependsOn names tasks whose output must be available
// before this one runs.
type Spec struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          string
	Tools          []string
	DependsOn      []string
}

// Inputs are the only values substituted into task descriptions.
type Inputs struct {
	FilePath string
	Query    string
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// allowedPlaceholders is the complete substitution vocabulary. Anything
// else appearing in a template is a defect.
var allowedPlaceholders = map[string]bool{
	"file_path": true,
	"query":     true,
}

// Placeholders returns the set of template variables used in a description.
func Placeholders(description string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(description, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Render substitutes the inputs into the task description. Unknown
// placeholders fail rather than rendering partially.
func Render(s Spec, in Inputs) (string, error) {
	for _, p := range Placeholders(s.Description) {
		if !allowedPlaceholders[p] {
			return "", fmt.Errorf("task %s: unknown placeholder {%s}", s.Name, p)
		}
	}
	r := strings.NewReplacer(
		"{file_path}", in.FilePath,
		"{query}", in.Query,
	)
	return r.Replace(s.Description), nil
}

// Definitions returns the five analysis tasks in execution order.
func Definitions() []Spec {
	return []Spec{
		{
			Name: NameVerifyDocument,
			Description: `Verify and validate the uploaded financial document.

1. Check that the file at path {file_path} exists and was read successfully.
2. Identify the document type (PDF, TXT, CSV).
3. Extract basic company information if available.
4. Note any issues with the document format.

User query: {query}`,
			ExpectedOutput: "A verification report with document type, validity status, and basic metadata.",
			Agent:          agent.RoleDocumentVerifier,
			Tools:          []string{tool.NameReadDocument},
		},
		{
			Name: NameExtractData,
			Description: `Extract key financial data from the document at path {file_path}.

Look for these specific metrics:
- Revenue/Sales figures
- Net Income/Profit
- Total Assets
- Total Liabilities/Debt
- Cash and Cash Equivalents
- Operating Cash Flow

Format the data in a structured way.`,
			ExpectedOutput: "Structured financial data with key metrics in JSON format.",
			Agent:          agent.RoleDataExtractor,
			Tools:          []string{tool.NameReadDocument},
			DependsOn:      []string{NameVerifyDocument},
		},
		{
			Name: NameAnalyzeHealth,
			Description: `Analyze the financial health of the company based on the extracted data.

Calculate and interpret:
- Profit margins (gross, operating, net)
- Debt-to-equity ratio
- Current ratio (liquidity)
- Return on Assets (ROA)
- Return on Equity (ROE)

Provide a financial health score (0-100).
User query context: {query}`,
			ExpectedOutput: "Financial analysis with key ratios, health score, and assessment.",
			Agent:          agent.RoleFinancialAnalyst,
			Tools:          []string{tool.NameAnalyzeInvestment},
			DependsOn:      []string{NameExtractData},
		},
		{
			Name: NameRecommendations,
			Description: `Provide investment recommendations based on the financial analysis.

Include:
- Investment thesis (2-3 sentences)
- Clear Buy/Hold/Sell recommendation
- Key risks to consider
- Suggested time horizon (short/medium/long-term)
- Target price range if applicable

Base recommendations on actual financial data, not speculation.
User query: {query}`,
			ExpectedOutput: "Investment recommendations with rationale and risk assessment.",
			Agent:          agent.RoleInvestmentAdvisor,
			Tools:          []string{tool.NameAnalyzeInvestment, tool.NameAssessRisk},
			DependsOn:      []string{NameAnalyzeHealth},
		},
		{
			Name: NameGenerateReport,
			Description: `Generate a comprehensive financial analysis report.

The report should include:

1. EXECUTIVE SUMMARY: company overview, key findings, primary recommendation
2. FINANCIAL HIGHLIGHTS: key metrics table, notable trends
3. DETAILED ANALYSIS: profitability, liquidity position, solvency assessment
4. RISK ASSESSMENT: key risks identified, risk level (Low/Medium/High)
5. INVESTMENT THESIS: recommendation, rationale, time horizon

Format the report professionally with clear sections.
User query: {query}`,
			ExpectedOutput: "A complete, well-structured financial analysis report.",
			Agent:          agent.RoleReportWriter,
			Tools:          nil,
			DependsOn:      []string{NameAnalyzeHealth, NameRecommendations},
		},
	}
}

// ValidateCatalog checks the task list against the agent catalog and tool
// registry: placeholders must stay within the allowed vocabulary, agent and
// tool references must resolve, a task's tools must be within its agent's
// capability set, and dependencies may only name earlier tasks.
func ValidateCatalog(tasks []Spec, agents *agent.Catalog, tools tool.Registry) error {
	defined := make(map[string]bool, len(tasks))

	for _, t := range tasks {
		if defined[t.Name] {
			return fmt.Errorf("task %s: defined twice", t.Name)
		}

		for _, p := range Placeholders(t.Description) {
			if !allowedPlaceholders[p] {
				return fmt.Errorf("task %s: unknown placeholder {%s}", t.Name, p)
			}
		}

		spec, ok := agents.Get(t.Agent)
		if !ok {
			return fmt.Errorf("task %s: unknown agent %q", t.Name, t.Agent)
		}

		capability := make(map[string]bool, len(spec.Tools))
		for _, name := range spec.Tools {
			capability[name] = true
		}
		for _, name := range t.Tools {
			if _, ok := tools.Get(name); !ok {
				return fmt.Errorf("task %s: unknown tool %q", t.Name, name)
			}
			if !capability[name] {
				return fmt.Errorf("task %s: tool %q is outside agent %s's capability set", t.Name, name, t.Agent)
			}
		}

		for _, dep := range t.DependsOn {
			if !defined[dep] {
				return fmt.Errorf("task %s: dependency %q must be defined earlier", t.Name, dep)
			}
		}

		defined[t.Name] = true
	}
	return nil
}
