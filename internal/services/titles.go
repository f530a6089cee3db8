package services

import (
	"fmt"

	"budgetdash/internal/core"
)

func trendTitle(s core.SelectionState) string {
	if a, ok := s.Drilldown.Account(); ok {
		return "Konto-Entwicklung " + a
	}
	if c, ok := s.Drilldown.CostCenter(); ok {
		return "Kostenstellen-Entwicklung " + c
	}
	return fmt.Sprintf("Gesamtbudget-Entwicklung (%s)", core.JoinYears(s.SelectedYears))
}

func accountsTitle(s core.SelectionState, count int) string {
	label := fmt.Sprintf("Top %d", count)
	if s.RankMode == core.RankBottom {
		label = fmt.Sprintf("Lowest %d", count)
	}
	title := fmt.Sprintf("Konten (%s) Budget (%s)", label, core.JoinYears(s.SelectedYears))
	if c, ok := s.Drilldown.CostCenter(); ok {
		title += " für " + c
	}
	return title
}

func costCentersTitle(s core.SelectionState) string {
	if a, ok := s.Drilldown.Account(); ok {
		return "Kostenstellen für " + a
	}
	return fmt.Sprintf("Budget-Verteilung auf Kostenstellen (%s)", core.JoinYears(s.SelectedYears))
}
