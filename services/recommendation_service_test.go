package services_test

import (
	"context"
	"strings"
	"testing"

	"renalscan/models"
	"renalscan/services"
	"renalscan/utils"
)

func TestResolveRecommendationsOrder(t *testing.T) {
	full := map[string]any{"recomendaciones": "Top level.", "compatibilidad_renal": true}
	text := map[string]any{"recomendaciones": "From text.", "compatibilidad_renal": false}

	v := services.ResolveRecommendations(text, full)
	if v == nil || v.Text != "Top level." || v.Compatible == nil || !*v.Compatible {
		t.Fatalf("v=%+v", v)
	}
	if v.StatusLabel != services.StatusLabelRecommended || v.Expandable {
		t.Fatalf("v=%+v", v)
	}

	v = services.ResolveRecommendations(text, map[string]any{})
	if v.Text != "From text." || *v.Compatible || v.StatusLabel != services.StatusLabelNotRecommended {
		t.Fatalf("v=%+v", v)
	}

	v = services.ResolveRecommendations("Se recomienda reducir la sal.", map[string]any{"compatible_con_perfil": false})
	if v == nil || v.Text != "Se recomienda reducir la sal." || *v.Compatible {
		t.Fatalf("v=%+v", v)
	}
}

func TestResolveRecommendationsNone(t *testing.T) {
	if v := services.ResolveRecommendations("plain text", nil); v != nil {
		t.Fatalf("v=%+v", v)
	}
	if v := services.ResolveRecommendations(nil, map[string]any{"recomendaciones": "  "}); v != nil {
		t.Fatalf("v=%+v", v)
	}
}

func TestResolveRecommendationsUnknownCompatibility(t *testing.T) {
	long := strings.Repeat("a", 101)
	v := services.ResolveRecommendations(nil, map[string]any{"recomendaciones": long})
	if v.Compatible != nil || v.StatusLabel != services.StatusLabelRecommended || !v.Expandable {
		t.Fatalf("v=%+v", v)
	}
}

func TestRuleBasedRecommendations(t *testing.T) {
	cs := []utils.Classification{
		utils.Classify(utils.Sodium, 100),
		utils.Classify(utils.Potassium, 800),
		utils.Classify(utils.Phosphorus, 250),
	}
	got := services.RuleBasedRecommendations(cs)
	if !strings.Contains(got, "Potassium exceeds") || !strings.Contains(got, "Phosphorus is close") || strings.Contains(got, "Sodium") {
		t.Fatalf("got %q", got)
	}
	if got := services.RuleBasedRecommendations(nil); !strings.Contains(got, "within the recommended") {
		t.Fatalf("got %q", got)
	}
}

func TestRecServiceWithoutTokenFallsBack(t *testing.T) {
	t.Setenv("HUGGINGFACE_TOKEN", "")
	cs := []utils.Classification{utils.Classify(utils.Sodium, 600)}
	got := services.NewRecService(nil).Generate(context.Background(), []string{"soup"}, cs)
	if got != services.RuleBasedRecommendations(cs) {
		t.Fatalf("got %q", got)
	}
}

func TestMineralSummaryFromCompatibility(t *testing.T) {
	compat := map[string]any{
		"sodio":   map[string]any{"compatible": true, "valor": float64(400)},
		"potasio": map[string]any{"compatible": false, "valor": "750"},
		"fosforo": "broken",
	}
	s := services.MineralSummaryFromCompatibility(compat, services.SourceAIEstimate)
	if !s.AIEstimate || s.SourceNote == "" || s.RenalCompatible {
		t.Fatalf("summary=%+v", s)
	}
	if len(s.Minerals) != 3 {
		t.Fatalf("rows=%d", len(s.Minerals))
	}
	na, k, p := s.Minerals[0], s.Minerals[1], s.Minerals[2]
	if na.Status != utils.StatusWarning || na.PercentOfLimit != 70 || na.Formatted != "400 mg" || na.LimitLabel != "Limit: 570mg" {
		t.Errorf("sodium=%+v", na)
	}
	if k.Status != utils.StatusExceeded || k.BarWidth != 100 || k.Compatible == nil || *k.Compatible {
		t.Errorf("potassium=%+v", k)
	}
	if p.Value != 0 || p.BarWidth != 5 || p.Compatible != nil {
		t.Errorf("phosphorus=%+v", p)
	}
}

func TestMineralSummaryFromTotals(t *testing.T) {
	s := services.MineralSummaryFromTotals(models.NutrientTotals{Sodium: 100, Potassium: 200, Phosphorus: 100}, "base_datos")
	if s.AIEstimate || s.SourceNote != "" || !s.RenalCompatible {
		t.Fatalf("summary=%+v", s)
	}
	for _, row := range s.Minerals {
		if row.Status != utils.StatusGood {
			t.Errorf("row=%+v", row)
		}
	}
}
