package task

import (
	"strings"
	"testing"

	"github.com/finsight/finsight/internal/agent"
	"github.com/finsight/finsight/internal/tool"
)

func TestPlaceholdersSubsetInvariant(t *testing.T) {
	for _, spec := range Definitions() {
		for _, p := range Placeholders(spec.Description) {
			if p != "file_path" && p != "query" {
				t.Errorf("task %s uses placeholder {%s}; only {file_path} and {query} are allowed", spec.Name, p)
			}
		}
	}
}

func TestDefinitionsValidate(t *testing.T) {
	err := ValidateCatalog(Definitions(), agent.NewCatalog("m"), tool.Defaults())
	if err != nil {
		t.Fatalf("built-in task catalog failed validation: %v", err)
	}
}

func TestRender(t *testing.T) {
	spec := Spec{
		Name:        "t",
		Description: "Read {file_path} and answer: {query}. Path again: {file_path}",
	}

	got, err := Render(spec, Inputs{FilePath: "/tmp/doc.pdf", Query: "What is the revenue growth?"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "Read /tmp/doc.pdf and answer: What is the revenue growth?. Path again: /tmp/doc.pdf"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderRejectsUnknownPlaceholder(t *testing.T) {
	spec := Spec{
		Name:        "t",
		Description: "Use the output of {verification_result} for {query}",
	}

	_, err := Render(spec, Inputs{FilePath: "/tmp/doc.pdf", Query: "q"})
	if err == nil {
		t.Fatal("expected error for unknown placeholder")
	}
	if !strings.Contains(err.Error(), "verification_result") {
		t.Errorf("error should name the offending placeholder: %v", err)
	}
}

func TestValidateCatalogErrors(t *testing.T) {
	agents := agent.NewCatalog("m")
	tools := tool.Defaults()

	tests := []struct {
		name    string
		tasks   []Spec
		wantSub string
	}{
		{
			name: "unknown agent",
			tasks: []Spec{
				{Name: "a", Description: "d", Agent: "nobody"},
			},
			wantSub: "unknown agent",
		},
		{
			name: "unknown tool",
			tasks: []Spec{
				{Name: "a", Description: "d", Agent: agent.RoleDocumentVerifier, Tools: []string{"telepathy"}},
			},
			wantSub: "unknown tool",
		},
		{
			name: "tool outside capability set",
			tasks: []Spec{
				{Name: "a", Description: "d", Agent: agent.RoleDocumentVerifier, Tools: []string{tool.NameAssessRisk}},
			},
			wantSub: "capability set",
		},
		{
			name: "forward dependency",
			tasks: []Spec{
				{Name: "a", Description: "d", Agent: agent.RoleReportWriter, DependsOn: []string{"b"}},
				{Name: "b", Description: "d", Agent: agent.RoleReportWriter},
			},
			wantSub: "defined earlier",
		},
		{
			name: "duplicate name",
			tasks: []Spec{
				{Name: "a", Description: "d", Agent: agent.RoleReportWriter},
				{Name: "a", Description: "d", Agent: agent.RoleReportWriter},
			},
			wantSub: "defined twice",
		},
		{
			name: "bad placeholder",
			tasks: []Spec{
				{Name: "a", Description: "use {context}", Agent: agent.RoleReportWriter},
			},
			wantSub: "unknown placeholder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCatalog(tt.tasks, agents, tools)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want substring %q", err, tt.wantSub)
			}
		})
	}
}

func TestDependencyChainOrder(t *testing.T) {
	defs := Definitions()

	if defs[0].Name != NameVerifyDocument {
		t.Errorf("first task = %s, want %s", defs[0].Name, NameVerifyDocument)
	}
	if defs[len(defs)-1].Name != NameGenerateReport {
		t.Errorf("last task = %s, want %s", defs[len(defs)-1].Name, NameGenerateReport)
	}

	// The report depends on both analysis and recommendations.
	report := defs[len(defs)-1]
	deps := strings.Join(report.DependsOn, ",")
	if !strings.Contains(deps, NameAnalyzeHealth) || !strings.Contains(deps, NameRecommendations) {
		t.Errorf("report dependencies = %v", report.DependsOn)
	}
}
