package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Risk performs a keyword scan over extracted financial text and produces a
// structured risk assessment.
type Risk struct{}

func (Risk) Name() string { return NameAssessRisk }

func (Risk) Description() string {
	return "Assess financial, market, and operational risks present in extracted financial data."
}

// RiskReport is the JSON document returned by the tool.
type RiskReport struct {
	FinancialRisks   []RiskItem `json:"financial_risks"`
	MarketRisks      []RiskItem `json:"market_risks"`
	OverallRiskLevel string     `json:"overall_risk_level"`
	RiskScore        int        `json:"risk_score"`
	RiskFactors      []string   `json:"risk_factors"`
}

type RiskItem struct {
	Risk     string `json:"risk"`
	Severity string `json:"severity"`
}

type riskSignal struct {
	keyword  string
	category string // "financial" or "market"
	factor   string
	severity string
	weight   int
}

var riskSignals = []riskSignal{
	{"debt", "financial", "High debt levels", "medium", 10},
	{"impairment", "financial", "Asset impairment", "medium", 5},
	{"going concern", "financial", "Going concern doubt", "high", 15},
	{"litigation", "financial", "Pending litigation", "medium", 10},
	{"volatile", "market", "Market volatility", "medium", 5},
	{"uncertainty", "market", "Market uncertainty", "medium", 5},
}

const baseRiskScore = 30

func (Risk) Run(_ context.Context, financialData string) (string, error) {
	lower := strings.ToLower(financialData)

	report := RiskReport{
		FinancialRisks: []RiskItem{},
		MarketRisks:    []RiskItem{},
		RiskFactors:    []string{},
		RiskScore:      baseRiskScore,
	}

	for _, sig := range riskSignals {
		if !strings.Contains(lower, sig.keyword) {
			continue
		}
		item := RiskItem{Risk: sig.factor, Severity: sig.severity}
		if sig.category == "financial" {
			report.FinancialRisks = append(report.FinancialRisks, item)
		} else {
			report.MarketRisks = append(report.MarketRisks, item)
		}
		report.RiskFactors = append(report.RiskFactors, sig.factor)
		report.RiskScore += sig.weight
	}

	switch {
	case report.RiskScore >= 70:
		report.OverallRiskLevel = "high"
	case report.RiskScore >= 40:
		report.OverallRiskLevel = "medium"
	default:
		report.OverallRiskLevel = "low"
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding risk report: %w", err)
	}
	return string(out), nil
}
