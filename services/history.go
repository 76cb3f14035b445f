package services

import (
	"sort"
	"strings"
	"time"

	"renalscan/models"
)

var userIDFields = []string{"persona_id", "id_persona", "usuario_id", "id_usuario"}

var analysisTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FilterByUser keeps the records whose user-id fields match userID when
// both sides are compared as strings.
func FilterByUser(records []map[string]any, userID string) []map[string]any {
	userID = strings.TrimSpace(userID)
	out := make([]map[string]any, 0, len(records))
	if userID == "" {
		return out
	}
	for _, r := range records {
		for _, f := range userIDFields {
			if id, ok := asID(r[f]); ok && id == userID {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SortByAnalyzedAt orders records newest first. Records without a usable
// fecha_analisis go last, keeping their input order.
func SortByAnalyzedAt(records []map[string]any) {
	type key struct {
		t  time.Time
		ok bool
	}
	keys := make([]key, len(records))
	idx := make([]int, len(records))
	for i, r := range records {
		t, ok := analyzedAt(r)
		keys[i] = key{t, ok}
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if !ka.ok || !kb.ok {
			return ka.ok && !kb.ok
		}
		return ka.t.After(kb.t)
	})
	sorted := make([]map[string]any, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	copy(records, sorted)
}

func analyzedAt(r map[string]any) (time.Time, bool) {
	s, ok := asText(r["fecha_analisis"])
	if !ok {
		return time.Time{}, false
	}
	return ParseAnalysisTime(s)
}

// ParseAnalysisTime accepts the timestamp layouts the analysis backends emit.
func ParseAnalysisTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range analysisTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// historyEntry builds the list row from a raw record without the full
// normalization pass.
func historyEntry(r map[string]any, imageURL func(string) string) models.HistoryEntry {
	e := models.HistoryEntry{DisplayName: DefaultDisplayName}
	e.ID, _ = asID(r["id"])
	e.AnalyzedAt, _ = asText(r["fecha_analisis"])
	if name, ok := firstOf(r, asText, at("nombre"), at("conclusion")); ok {
		e.DisplayName = name
	}
	if img, ok := firstOf(r, asText, at("url_imagen"), at("imagen_analizada")); ok && imageURL != nil {
		e.ImageURL = imageURL(img)
	}
	if b, ok := asBool(r["compatible_con_perfil"]); ok {
		e.IsProfileCompatible = &b
	}
	if b, ok := firstOf(r, asBool, at("compatibilidad_renal"), at("resultado", "compatibilidad_renal")); ok {
		e.IsRenalCompatible = &b
	}
	if pid, ok := firstOf(r, asID, at("persona_id"), at("id_persona")); ok {
		e.PersonID = &pid
	}
	return e
}
