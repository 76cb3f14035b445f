package services

import (
	"renalscan/models"
)

// AnalysisSummary is what the results view shows next to the record.
type AnalysisSummary struct {
	Analysis        models.AnalysisRecord `json:"analysis"`
	Minerals        MineralSummary        `json:"minerals"`
	Recommendations *RecommendationView   `json:"recommendations"`
}

// Summarize builds the mineral card and the recommendations card for a raw
// record. The per-mineral compatibility block of the analysis text wins
// over the nutrient totals when present.
func (h *HistoryService) Summarize(raw map[string]any, userID string) AnalysisSummary {
	rec := h.Normalize(raw, userID)
	return summarize(raw, rec)
}

func summarize(raw map[string]any, rec models.AnalysisRecord) AnalysisSummary {
	source, _ := asText(rec.RawSourceText["fuente_valores"])

	var minerals MineralSummary
	if compat, ok := asMap(rec.RawSourceText["compatibilidad"]); ok {
		minerals = MineralSummaryFromCompatibility(compat, source)
	} else {
		minerals = MineralSummaryFromTotals(rec.NutrientTotals, source)
	}

	// the analysis text is the parsed object when there is one, otherwise
	// whatever text the backend sent
	var analysisText any
	if rec.RawSourceText != nil {
		analysisText = rec.RawSourceText
	} else if s, ok := firstOf(raw, asText, at("resultado", "texto_original"), at("texto_original")); ok {
		analysisText = s
	}
	fullResult, _ := asMap(raw["resultado"])

	return AnalysisSummary{
		Analysis:        rec,
		Minerals:        minerals,
		Recommendations: ResolveRecommendations(analysisText, fullResult),
	}
}
