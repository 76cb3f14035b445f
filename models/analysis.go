package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Analysis is one stored food-image scan. Result keeps the payload in the
// shape the legacy analysis backend produced so stored rows and upstream
// rows go through the same normalizer.
type Analysis struct {
	gorm.Model
	PersonID          string    `gorm:"index;not null"`
	ImageRef          string    // S3 object key
	AnalyzedAt        time.Time `gorm:"index"`
	Name              string
	Conclusion        string `gorm:"type:text"`
	RenalCompatible   *bool
	ProfileCompatible *bool
	Result            string `gorm:"type:jsonb"`
}

// Raw renders the row as a loosely-typed record, keyed like the upstream API.
func (a *Analysis) Raw() map[string]any {
	raw := map[string]any{
		"id":             a.ID,
		"persona_id":     a.PersonID,
		"fecha_analisis": a.AnalyzedAt.UTC().Format(time.RFC3339),
	}
	if a.ImageRef != "" {
		raw["url_imagen"] = a.ImageRef
	}
	if a.Name != "" {
		raw["nombre"] = a.Name
	}
	if a.Conclusion != "" {
		raw["conclusion"] = a.Conclusion
	}
	if a.RenalCompatible != nil {
		raw["compatibilidad_renal"] = *a.RenalCompatible
	}
	if a.ProfileCompatible != nil {
		raw["compatible_con_perfil"] = *a.ProfileCompatible
	}
	if a.Result != "" {
		var res map[string]any
		if err := json.Unmarshal([]byte(a.Result), &res); err == nil {
			raw["resultado"] = res
		}
	}
	return raw
}
