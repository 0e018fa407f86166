package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Investment scores extracted financial text and produces a structured
// recommendation. Deterministic: the same text always yields the same output.
type Investment struct{}

func (Investment) Name() string { return NameAnalyzeInvestment }

func (Investment) Description() string {
	return "Analyze extracted financial data and generate investment insights and a Buy/Hold/Sell recommendation."
}

// InvestmentReport is the JSON document returned by the tool.
type InvestmentReport struct {
	Status          string             `json:"status"`
	Metrics         map[string]float64 `json:"extracted_metrics"`
	Ratios          map[string]float64 `json:"calculated_ratios"`
	InvestmentScore int                `json:"investment_score"`
	Recommendation  string             `json:"recommendation"`
}

func (Investment) Run(_ context.Context, financialData string) (string, error) {
	metrics := extractMetrics(financialData)
	ratios := calculateRatios(metrics)
	score := investmentScore(ratios)

	report := InvestmentReport{
		Status:          "success",
		Metrics:         metrics,
		Ratios:          ratios,
		InvestmentScore: score,
		Recommendation:  recommendation(score),
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding investment report: %w", err)
	}
	return string(out), nil
}

type metricPattern struct {
	name    string
	pattern *regexp.Regexp
}

var metricPatterns = []metricPattern{
	{"revenue", regexp.MustCompile(`(?i)(?:revenue|sales)[:\s]+\$?([\d,]+\.?\d*)\s*(million|billion|thousand)?`)},
	{"net_income", regexp.MustCompile(`(?i)net\s+(?:income|profit)[:\s]+\$?([\d,]+\.?\d*)\s*(million|billion|thousand)?`)},
	{"total_assets", regexp.MustCompile(`(?i)total\s+assets[:\s]+\$?([\d,]+\.?\d*)\s*(million|billion|thousand)?`)},
	{"total_liabilities", regexp.MustCompile(`(?i)total\s+(?:liabilities|debt)[:\s]+\$?([\d,]+\.?\d*)\s*(million|billion|thousand)?`)},
	{"cash", regexp.MustCompile(`(?i)cash(?:\s+and\s+cash\s+equivalents)?[:\s]+\$?([\d,]+\.?\d*)\s*(million|billion|thousand)?`)},
}

var unitMultipliers = map[string]float64{
	"thousand": 1e3,
	"million":  1e6,
	"billion":  1e9,
}

func extractMetrics(text string) map[string]float64 {
	metrics := make(map[string]float64)
	for _, mp := range metricPatterns {
		m := mp.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if mult, ok := unitMultipliers[strings.ToLower(m[2])]; ok {
			value *= mult
		}
		metrics[mp.name] = value
	}
	return metrics
}

func calculateRatios(metrics map[string]float64) map[string]float64 {
	ratios := make(map[string]float64)

	if rev, ok := metrics["revenue"]; ok && rev != 0 {
		if ni, ok := metrics["net_income"]; ok {
			ratios["profit_margin"] = round2(ni / rev * 100)
		}
	}
	if assets, ok := metrics["total_assets"]; ok && assets != 0 {
		if liab, ok := metrics["total_liabilities"]; ok {
			ratios["debt_ratio"] = round2(liab / assets)
		}
		if ni, ok := metrics["net_income"]; ok {
			ratios["return_on_assets"] = round2(ni / assets * 100)
		}
	}
	return ratios
}

// investmentScore maps ratios into a 0-100 score starting from a neutral 50.
func investmentScore(ratios map[string]float64) int {
	score := 50

	switch margin := ratios["profit_margin"]; {
	case margin > 15:
		score += 15
	case margin > 10:
		score += 10
	case margin > 5:
		score += 5
	}

	if debt, ok := ratios["debt_ratio"]; ok {
		switch {
		case debt > 0.8:
			score -= 15
		case debt > 0.6:
			score -= 5
		case debt < 0.3:
			score += 5
		}
	}

	if roa := ratios["return_on_assets"]; roa > 8 {
		score += 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func recommendation(score int) string {
	switch {
	case score >= 80:
		return "STRONG BUY: Company shows excellent financial metrics"
	case score >= 60:
		return "BUY: Company shows good financial health"
	case score >= 40:
		return "HOLD: Company shows average financial metrics"
	default:
		return "SELL/AVOID: Company shows concerning financial metrics"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
