package services_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"renalscan/models"
	"renalscan/services"
)

var fixedNow = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func normalizer() services.Normalizer {
	return services.Normalizer{Now: func() time.Time { return fixedNow }}
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return m
}

func TestNormalizeEmptyRecord(t *testing.T) {
	for _, raw := range []map[string]any{nil, {}} {
		rec := normalizer().Normalize(raw, "")
		if rec.ID != "1709632800000" {
			t.Errorf("id=%q", rec.ID)
		}
		if rec.PersonID != nil {
			t.Errorf("personId=%v", *rec.PersonID)
		}
		if rec.AnalyzedAt != "2024-03-05T10:00:00Z" {
			t.Errorf("analyzedAt=%q", rec.AnalyzedAt)
		}
		if rec.DisplayName != services.DefaultDisplayName {
			t.Errorf("displayName=%q", rec.DisplayName)
		}
		if rec.DetectedFoods == nil || len(rec.DetectedFoods) != 0 {
			t.Errorf("detectedFoods=%v", rec.DetectedFoods)
		}
		if rec.NutrientTotals != (models.NutrientTotals{}) {
			t.Errorf("totals=%+v", rec.NutrientTotals)
		}
		if rec.UserFoodSelections == nil || rec.FoodUnitOverrides == nil {
			t.Error("passthrough maps must not be nil")
		}
		if rec.IsRenalCompatible != nil || rec.Recommendations != nil || rec.RawSourceText != nil {
			t.Errorf("unexpected optional fields: %+v", rec)
		}
	}
}

func TestNormalizeKeepsFalseCompatibility(t *testing.T) {
	rec := normalizer().Normalize(decode(t, `{"id": 5, "compatibilidad_renal": false}`), "u1")
	if rec.ID != "5" {
		t.Errorf("id=%q", rec.ID)
	}
	if rec.IsRenalCompatible == nil || *rec.IsRenalCompatible {
		t.Errorf("isRenalCompatible=%v", rec.IsRenalCompatible)
	}
	if rec.PersonID == nil || *rec.PersonID != "u1" {
		t.Errorf("personId=%v", rec.PersonID)
	}
	if len(rec.DetectedFoods) != 0 || rec.NutrientTotals != (models.NutrientTotals{}) {
		t.Errorf("expected empty foods and zero totals, got %+v", rec)
	}

	out, _ := json.Marshal(rec)
	var back map[string]any
	_ = json.Unmarshal(out, &back)
	if foods, ok := back["detectedFoods"].([]any); !ok || len(foods) != 0 {
		t.Errorf("detectedFoods should serialize as [], got %v", back["detectedFoods"])
	}
	totals := back["nutrientTotals"].(map[string]any)
	if len(totals) != 7 {
		t.Errorf("nutrientTotals keys=%v", totals)
	}
}

func TestNormalizeParsesEmbeddedText(t *testing.T) {
	raw := decode(t, `{
		"id": "a1",
		"persona_id": 42,
		"resultado": {
			"texto_original": "{\"alimentos_detectados\":[{\"nombre\":\"arroz\",\"cantidad\":150,\"unidad\":\"g\"},\"pollo\"],\"totales\":{\"energia\":320,\"sodio\":410,\"potasio\":\"90\"},\"compatibilidad_renal\":true}",
			"alimentos_detectados": [{"nombre": "ignored"}],
			"totales": {"energia": 999, "fosforo": 120},
			"recomendaciones": "Reduce salt."
		}
	}`)
	rec := normalizer().Normalize(raw, "fallback")

	if rec.PersonID == nil || *rec.PersonID != "42" {
		t.Fatalf("personId=%v", rec.PersonID)
	}
	if len(rec.DetectedFoods) != 2 || rec.DetectedFoods[0].Name != "arroz" || rec.DetectedFoods[0].Quantity != 150 || rec.DetectedFoods[0].Unit != "g" || rec.DetectedFoods[1].Name != "pollo" {
		t.Fatalf("detectedFoods=%+v", rec.DetectedFoods)
	}
	want := models.NutrientTotals{Energy: 320, Sodium: 410, Potassium: 90, Phosphorus: 120}
	if rec.NutrientTotals != want {
		t.Fatalf("totals=%+v want %+v", rec.NutrientTotals, want)
	}
	if rec.IsRenalCompatible == nil || !*rec.IsRenalCompatible {
		t.Fatalf("isRenalCompatible=%v", rec.IsRenalCompatible)
	}
	if rec.Recommendations == nil || *rec.Recommendations != "Reduce salt." {
		t.Fatalf("recommendations=%v", rec.Recommendations)
	}
	if rec.RawSourceText == nil || rec.RawSourceText["compatibilidad_renal"] != true {
		t.Fatalf("rawSourceText=%v", rec.RawSourceText)
	}
}

func TestNormalizeInvalidEmbeddedTextFallsBack(t *testing.T) {
	raw := decode(t, `{
		"resultado": {"texto_original": "not json {"},
		"alimentos_detectados": [{"name": "apple", "quantity": 1}],
		"totales": {"potasio": 200}
	}`)
	rec := normalizer().Normalize(raw, "")
	if len(rec.DetectedFoods) != 1 || rec.DetectedFoods[0].Name != "apple" {
		t.Fatalf("detectedFoods=%+v", rec.DetectedFoods)
	}
	if rec.NutrientTotals != (models.NutrientTotals{Potassium: 200}) {
		t.Fatalf("totals=%+v", rec.NutrientTotals)
	}
	if rec.RawSourceText != nil {
		t.Fatalf("rawSourceText=%v", rec.RawSourceText)
	}

	rec = normalizer().Normalize(decode(t, `{"resultado": {"texto_original": "[1,2"}}`), "")
	if len(rec.DetectedFoods) != 0 || rec.NutrientTotals != (models.NutrientTotals{}) {
		t.Fatalf("expected defaults, got %+v", rec)
	}
}

func TestNormalizeEmbeddedObjectAndTopLevelText(t *testing.T) {
	raw := decode(t, `{
		"resultado": {"texto_original": {"alimentos_detectados": ["pan"], "totales": {"lipidos": 0, "proteinas": 4}}},
		"totales": {"lipidos": 12, "hidratos_carbono": 30}
	}`)
	rec := normalizer().Normalize(raw, "")
	want := models.NutrientTotals{Protein: 4, Fat: 0, Carbohydrate: 30}
	if rec.NutrientTotals != want {
		t.Fatalf("totals=%+v want %+v (zero from earlier source must win)", rec.NutrientTotals, want)
	}

	raw = decode(t, `{"texto_original": {"compatibilidad_renal": false}}`)
	rec = normalizer().Normalize(raw, "")
	if rec.IsRenalCompatible == nil || *rec.IsRenalCompatible {
		t.Fatalf("compat from top-level text: %v", rec.IsRenalCompatible)
	}
}

func TestNormalizeFieldPriority(t *testing.T) {
	raw := decode(t, `{
		"id_persona": "p2",
		"nombre": "",
		"conclusion": "High potassium meal",
		"imagen_analizada": "uploads/b.jpg",
		"resultado": {"imagen_analizada": "uploads/c.jpg", "compatibilidad_renal": true},
		"compatibilidad_renal": false,
		"compatible_con_perfil": true,
		"fecha_analisis": "2024-01-01",
		"seleccionesEspecificas": {"0": "white rice"},
		"foodsWithUnits": {"arroz": "taza"},
		"alimentosActualizados": [1]
	}`)
	rec := normalizer().Normalize(raw, "fallback")
	if *rec.PersonID != "p2" {
		t.Errorf("personId=%q", *rec.PersonID)
	}
	if rec.DisplayName != "High potassium meal" || *rec.ConclusionText != "High potassium meal" {
		t.Errorf("displayName=%q", rec.DisplayName)
	}
	if *rec.CapturedImageRef != "uploads/b.jpg" {
		t.Errorf("image=%q", *rec.CapturedImageRef)
	}
	if *rec.IsRenalCompatible {
		t.Error("top-level compatibilidad_renal should win")
	}
	if rec.IsProfileCompatible == nil || !*rec.IsProfileCompatible {
		t.Error("isProfileCompatible lost")
	}
	if rec.AnalyzedAt != "2024-01-01" {
		t.Errorf("analyzedAt=%q", rec.AnalyzedAt)
	}
	if !reflect.DeepEqual(rec.UserFoodSelections, map[string]any{"0": "white rice"}) ||
		!reflect.DeepEqual(rec.FoodUnitOverrides, map[string]any{"arroz": "taza"}) {
		t.Errorf("passthrough maps changed: %v %v", rec.UserFoodSelections, rec.FoodUnitOverrides)
	}
	if rec.UpdatedFoods == nil {
		t.Error("updatedFoods lost")
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := decode(t, `{"resultado": {"texto_original": "{\"totales\":{\"sodio\":1}}"}}`)
	a := normalizer().Normalize(raw, "x")
	b := normalizer().Normalize(raw, "x")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same input produced different output:\n%+v\n%+v", a, b)
	}
}

func TestNormalizeStoredAnalysis(t *testing.T) {
	compatible := false
	row := models.Analysis{
		PersonID:        "7",
		ImageRef:        "analyses/7/x.jpg",
		AnalyzedAt:      fixedNow,
		Name:            "Lunch",
		RenalCompatible: &compatible,
		Result:          `{"texto_original":"{\"alimentos_detectados\":[\"banana\"],\"totales\":{\"potasio\":720}}","recomendaciones":"Avoid bananas."}`,
	}
	row.ID = 11
	rec := normalizer().Normalize(row.Raw(), "")
	if rec.ID != "11" || *rec.PersonID != "7" || rec.DisplayName != "Lunch" {
		t.Fatalf("identity fields: %+v", rec)
	}
	if rec.NutrientTotals.Potassium != 720 || len(rec.DetectedFoods) != 1 {
		t.Fatalf("content: %+v", rec)
	}
	if *rec.CapturedImageRef != "analyses/7/x.jpg" || *rec.Recommendations != "Avoid bananas." {
		t.Fatalf("refs: %+v", rec)
	}
}

func TestNormalizeIgnoresNonFiniteNumbers(t *testing.T) {
	raw := decode(t, `{
		"resultado": {"totales": {"sodio": "NaN", "potasio": "Inf"}},
		"totales": {"sodio": 40, "potasio": "-Infinity", "fosforo": "12"},
		"alimentos_detectados": [{"nombre": "rice", "cantidad": "NaN"}]
	}`)
	rec := normalizer().Normalize(raw, "7")

	want := models.NutrientTotals{Sodium: 40, Phosphorus: 12}
	if rec.NutrientTotals != want {
		t.Fatalf("totals=%+v", rec.NutrientTotals)
	}
	if len(rec.DetectedFoods) != 1 || rec.DetectedFoods[0].Quantity != 0 {
		t.Fatalf("foods=%+v", rec.DetectedFoods)
	}
	if _, err := json.Marshal(rec); err != nil {
		t.Fatalf("record does not encode: %v", err)
	}
}
