package agent

import (
	"testing"

	"github.com/finsight/finsight/internal/tool"
)

func TestCatalogHasAllRoles(t *testing.T) {
	c := NewCatalog("gemini-2.5-flash")

	roles := []string{
		RoleDocumentVerifier,
		RoleDataExtractor,
		RoleFinancialAnalyst,
		RoleRiskAssessor,
		RoleInvestmentAdvisor,
		RoleReportWriter,
	}
	for _, role := range roles {
		s, ok := c.Get(role)
		if !ok {
			t.Fatalf("role %q missing from catalog", role)
		}
		if s.Role != role {
			t.Errorf("spec role = %q, want %q", s.Role, role)
		}
		if s.Goal == "" || s.Backstory == "" {
			t.Errorf("role %q has empty goal or backstory", role)
		}
		if s.Model != "gemini-2.5-flash" {
			t.Errorf("role %q model = %q, want gemini-2.5-flash", role, s.Model)
		}
		if s.Memory {
			t.Errorf("role %q has memory enabled; no embedding backend is configured", role)
		}
	}

	if len(c.Roles()) != len(roles) {
		t.Errorf("catalog has %d roles, want %d", len(c.Roles()), len(roles))
	}
}

func TestCapabilitySets(t *testing.T) {
	c := NewCatalog("m")
	known := tool.Defaults()

	// Every declared tool must resolve in the default registry.
	for _, role := range c.Roles() {
		s, _ := c.Get(role)
		for _, name := range s.Tools {
			if _, ok := known.Get(name); !ok {
				t.Errorf("role %q references unknown tool %q", role, name)
			}
		}
	}

	verifier, _ := c.Get(RoleDocumentVerifier)
	if len(verifier.Tools) != 1 || verifier.Tools[0] != tool.NameReadDocument {
		t.Errorf("verifier tools = %v, want only the document reader", verifier.Tools)
	}

	writer, _ := c.Get(RoleReportWriter)
	if len(writer.Tools) != 0 {
		t.Errorf("report writer tools = %v, want none", writer.Tools)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	c := NewCatalog("m")

	s, _ := c.Get(RoleFinancialAnalyst)
	s.Goal = "mutated"

	fresh, _ := c.Get(RoleFinancialAnalyst)
	if fresh.Goal == "mutated" {
		t.Error("mutating a returned spec must not affect the catalog")
	}
}

func TestUnknownRole(t *testing.T) {
	c := NewCatalog("m")
	if _, ok := c.Get("hedge_fund_manager"); ok {
		t.Error("unknown role should not resolve")
	}
}
