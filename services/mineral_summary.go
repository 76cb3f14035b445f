package services

import (
	"fmt"

	"renalscan/models"
	"renalscan/utils"
)

// SourceAIEstimate marks mineral values estimated from the image rather
// than read from the food database.
const SourceAIEstimate = "estimacion_ia"

const aiEstimateNote = "The values shown are AI estimates based on the image analysis and may differ from the actual values in the food database."

// MineralRow is one line of the renal minerals card.
type MineralRow struct {
	utils.Classification
	Formatted     string  `json:"formatted"`
	LimitLabel    string  `json:"limit_label"`
	BarWidth      float64 `json:"bar_width"`
	WarningMarker float64 `json:"warning_marker"`
	// Compatible is the per-mineral flag the analysis backend reported, if any.
	Compatible *bool `json:"compatible,omitempty"`
}

type MineralSummary struct {
	Minerals   []MineralRow `json:"minerals"`
	AIEstimate bool         `json:"ai_estimate"`
	SourceNote string       `json:"source_note,omitempty"`
	// RenalCompatible is false as soon as one mineral reaches its max limit.
	RenalCompatible bool `json:"renal_compatible"`
}

var spanishMineralKeys = map[utils.Mineral]string{
	utils.Sodium:     "sodio",
	utils.Potassium:  "potasio",
	utils.Phosphorus: "fosforo",
}

// MineralSummaryFromCompatibility reads the backend's
// compatibilidad.{sodio,potasio,fosforo}.{compatible,valor} block.
// Missing or malformed entries count as 0 mg.
func MineralSummaryFromCompatibility(compat map[string]any, source string) MineralSummary {
	values := make(map[utils.Mineral]float64, len(utils.Minerals))
	flags := make(map[utils.Mineral]*bool, len(utils.Minerals))
	for _, m := range utils.Minerals {
		entry, ok := compat[spanishMineralKeys[m]].(map[string]any)
		if !ok {
			continue
		}
		values[m] = utils.CoerceMilligrams(entry["valor"])
		// the legacy card treats anything but a true flag as not compatible
		b, _ := entry["compatible"].(bool)
		flags[m] = &b
	}
	return buildSummary(values, flags, source)
}

// MineralSummaryFromTotals uses the canonical nutrient totals.
func MineralSummaryFromTotals(t models.NutrientTotals, source string) MineralSummary {
	values := map[utils.Mineral]float64{
		utils.Sodium:     t.Sodium,
		utils.Potassium:  t.Potassium,
		utils.Phosphorus: t.Phosphorus,
	}
	return buildSummary(values, nil, source)
}

func buildSummary(values map[utils.Mineral]float64, flags map[utils.Mineral]*bool, source string) MineralSummary {
	th := utils.DefaultThresholds
	out := MineralSummary{
		Minerals:   make([]MineralRow, 0, len(utils.Minerals)),
		AIEstimate: source == SourceAIEstimate,
	}
	if out.AIEstimate {
		out.SourceNote = aiEstimateNote
	}

	cs := make([]utils.Classification, 0, len(utils.Minerals))
	for _, m := range utils.Minerals {
		row := mineralRow(th, m, values[m])
		row.Compatible = flags[m]
		cs = append(cs, row.Classification)
		out.Minerals = append(out.Minerals, row)
	}
	out.RenalCompatible = utils.RenalCompatible(cs...)
	return out
}

// NewMineralRow classifies a single reading against the default limits.
func NewMineralRow(m utils.Mineral, value float64) MineralRow {
	return mineralRow(utils.DefaultThresholds, m, value)
}

func mineralRow(th utils.Thresholds, m utils.Mineral, value float64) MineralRow {
	c := th.Classify(m, value)
	return MineralRow{
		Classification: c,
		Formatted:      utils.FormatMilligrams(c.Value),
		LimitLabel:     fmt.Sprintf("Limit: %.0fmg", c.MaxLimit),
		BarWidth:       th.BarWidth(m, c.Value),
		WarningMarker:  th.WarningMarker(m),
	}
}
