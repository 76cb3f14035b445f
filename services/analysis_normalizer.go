package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"renalscan/models"
)

// DefaultDisplayName is used when a record carries neither a name nor a conclusion.
const DefaultDisplayName = "Food analysis"

// Normalizer turns loosely-shaped analysis records into models.AnalysisRecord.
// Now supplies the generated id and the default timestamp; a fixed clock
// makes Normalize fully deterministic.
type Normalizer struct {
	Now func() time.Time
}

// NormalizeAnalysis normalizes with the wall clock.
func NormalizeAnalysis(raw map[string]any, fallbackUserID string) models.AnalysisRecord {
	return Normalizer{}.Normalize(raw, fallbackUserID)
}

// accessor reads one candidate location of a record.
type accessor func(raw map[string]any) (any, bool)

func at(path ...string) accessor {
	return func(raw map[string]any) (any, bool) { return lookup(raw, path...) }
}

// Normalize never fails: every field falls back to a documented default.
func (n Normalizer) Normalize(raw map[string]any, fallbackUserID string) models.AnalysisRecord {
	if raw == nil {
		raw = map[string]any{}
	}
	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}

	embedded := embeddedText(raw)
	sourceText := embedded
	if sourceText == nil {
		sourceText, _ = asObject(raw["texto_original"])
	}
	fromText := func(key string) accessor {
		return func(map[string]any) (any, bool) { return lookup(sourceText, key) }
	}
	fromEmbedded := func(key string) accessor {
		return func(map[string]any) (any, bool) { return lookup(embedded, key) }
	}

	rec := models.AnalysisRecord{
		DetectedFoods:      []models.FoodItem{},
		RawSourceText:      sourceText,
		UserFoodSelections: map[string]any{},
		FoodUnitOverrides:  map[string]any{},
	}

	if id, ok := firstOf(raw, asID, at("id")); ok {
		rec.ID = id
	} else {
		rec.ID = strconv.FormatInt(now.UnixMilli(), 10)
	}

	if pid, ok := firstOf(raw, asID, at("persona_id"), at("id_persona")); ok {
		rec.PersonID = &pid
	} else if fb := strings.TrimSpace(fallbackUserID); fb != "" {
		rec.PersonID = &fb
	}

	if img, ok := firstOf(raw, asText, at("url_imagen"), at("imagen_analizada"), at("resultado", "imagen_analizada")); ok {
		rec.CapturedImageRef = &img
	}

	if ts, ok := firstOf(raw, asText, at("fecha_analisis")); ok {
		rec.AnalyzedAt = ts
	} else {
		rec.AnalyzedAt = now.UTC().Format(time.RFC3339)
	}

	if name, ok := firstOf(raw, asText, at("nombre"), at("conclusion")); ok {
		rec.DisplayName = name
	} else {
		rec.DisplayName = DefaultDisplayName
	}

	if c, ok := firstOf(raw, asText, at("conclusion")); ok {
		rec.ConclusionText = &c
	}

	if b, ok := firstOf(raw, asBool,
		at("compatibilidad_renal"),
		at("resultado", "compatibilidad_renal"),
		fromText("compatibilidad_renal"),
	); ok {
		rec.IsRenalCompatible = &b
	}

	if b, ok := firstOf(raw, asBool, at("compatible_con_perfil")); ok {
		rec.IsProfileCompatible = &b
	}

	if foods, ok := firstOf(raw, asSlice,
		fromEmbedded("alimentos_detectados"),
		at("resultado", "alimentos_detectados"),
		at("alimentos_detectados"),
	); ok {
		rec.DetectedFoods = foodItems(foods)
	}

	rec.NutrientTotals = mergeTotals(raw,
		fromEmbedded("totales"),
		at("resultado", "totales"),
		at("totales"),
	)

	if r, ok := firstOf(raw, asText, at("resultado", "recomendaciones")); ok {
		rec.Recommendations = &r
	}

	if m, ok := firstOf(raw, asMap, at("seleccionesEspecificas")); ok {
		rec.UserFoodSelections = m
	}
	if m, ok := firstOf(raw, asMap, at("foodsWithUnits")); ok {
		rec.FoodUnitOverrides = m
	}
	if v, ok := raw["alimentosActualizados"]; ok && v != nil {
		rec.UpdatedFoods = v
	}

	return rec
}

// embeddedText is resultado.texto_original as an object, parsing it when it
// arrives as a JSON string. Unparsable text yields nil.
func embeddedText(raw map[string]any) map[string]any {
	v, ok := lookup(raw, "resultado", "texto_original")
	if !ok {
		return nil
	}
	m, _ := asObject(v)
	return m
}

func firstOf[T any](raw map[string]any, conv func(any) (T, bool), candidates ...accessor) (T, bool) {
	for _, c := range candidates {
		v, ok := c(raw)
		if !ok {
			continue
		}
		if out, ok := conv(v); ok {
			return out, true
		}
	}
	var zero T
	return zero, false
}

// ---------- totals ----------

type totalsField struct {
	keys []string
	set  func(t *models.NutrientTotals, v float64)
}

var totalsFields = []totalsField{
	{[]string{"energia", "energy", "calorias"}, func(t *models.NutrientTotals, v float64) { t.Energy = v }},
	{[]string{"proteinas", "protein"}, func(t *models.NutrientTotals, v float64) { t.Protein = v }},
	{[]string{"hidratos_carbono", "carbohidratos", "carbohydrate"}, func(t *models.NutrientTotals, v float64) { t.Carbohydrate = v }},
	{[]string{"lipidos", "grasas", "fat"}, func(t *models.NutrientTotals, v float64) { t.Fat = v }},
	{[]string{"sodio", "sodium"}, func(t *models.NutrientTotals, v float64) { t.Sodium = v }},
	{[]string{"potasio", "potassium"}, func(t *models.NutrientTotals, v float64) { t.Potassium = v }},
	{[]string{"fosforo", "phosphorus"}, func(t *models.NutrientTotals, v float64) { t.Phosphorus = v }},
}

// mergeTotals merges sources shallowly; a key resolved by an earlier source
// is never overwritten by a later one.
func mergeTotals(raw map[string]any, sources ...accessor) models.NutrientTotals {
	var out models.NutrientTotals
	resolved := make([]bool, len(totalsFields))
	for _, src := range sources {
		v, ok := src(raw)
		if !ok {
			continue
		}
		m, ok := asObject(v)
		if !ok {
			continue
		}
		for i, f := range totalsFields {
			if resolved[i] {
				continue
			}
			for _, k := range f.keys {
				if n, ok := asNumber(m[k]); ok {
					f.set(&out, n)
					resolved[i] = true
					break
				}
			}
		}
	}
	return out
}

// ---------- foods ----------

func foodItems(list []any) []models.FoodItem {
	out := make([]models.FoodItem, 0, len(list))
	for _, v := range list {
		switch f := v.(type) {
		case string:
			if s := strings.TrimSpace(f); s != "" {
				out = append(out, models.FoodItem{Name: s})
			}
		case map[string]any:
			item := models.FoodItem{Attributes: f}
			for _, k := range []string{"nombre", "name", "alimento", "descripcion"} {
				if s, ok := asText(f[k]); ok {
					item.Name = s
					break
				}
			}
			for _, k := range []string{"cantidad", "porcion", "quantity", "gramos"} {
				if n, ok := asNumber(f[k]); ok {
					item.Quantity = n
					break
				}
			}
			for _, k := range []string{"unidad", "unit"} {
				if s, ok := asText(f[k]); ok {
					item.Unit = s
					break
				}
			}
			out = append(out, item)
		}
	}
	return out
}

// ---------- typed readers ----------

func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, p := range path {
		obj, ok := cur.(map[string]any)
		if !ok || obj == nil {
			return nil, false
		}
		cur, ok = obj[p]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

func asText(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

// asObject accepts an object or a string holding a JSON object.
func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, o != nil
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(o), &m); err != nil || m == nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}

// asID renders string or numeric identifiers as strings.
func asID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return asText(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case json.Number:
		return id.String(), true
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(id), true
	}
	return "", false
}

// asNumber accepts finite numbers only; "NaN" and "Inf" strings count as absent.
func asNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
