package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"renalscan/models"
	"renalscan/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNoFoodDetected = errors.New("no food detected in image")

// SourceFoodDatabase marks values computed from the food database.
const SourceFoodDatabase = "base_datos"

const (
	maxLookups    = 3
	portionGrams  = 100.0
	alertTypeWarn = "warning"
)

type ImageStore interface {
	Upload(ctx context.Context, img *utils.DataURI, personID string) (string, error)
}

// ImageStoreFunc adapts a plain function such as utils.UploadAnalysisImage.
type ImageStoreFunc func(ctx context.Context, img *utils.DataURI, personID string) (string, error)

func (f ImageStoreFunc) Upload(ctx context.Context, img *utils.DataURI, personID string) (string, error) {
	return f(ctx, img, personID)
}

type LabelDetector interface {
	RecognizeLabels(ctx context.Context, image []byte) ([]string, error)
}

type FoodCatalog interface {
	SearchFoods(ctx context.Context, query string) ([]FoodHit, error)
	AnalyzeFood(ctx context.Context, foodID, measureURI string, qty float64) (map[string]float64, error)
}

type Recommender interface {
	Generate(ctx context.Context, foods []string, cs []utils.Classification) string
}

type ScanRequest struct {
	Image string `json:"image" binding:"required"`
	Name  string `json:"name"`
}

type ScanResult struct {
	Analysis models.AnalysisRecord `json:"analysis"`
	Minerals MineralSummary        `json:"minerals"`
}

type scannedFood struct {
	Label     string
	Match     string
	Nutrients map[string]float64
}

type ScanService struct {
	db     *gorm.DB
	images ImageStore
	labels LabelDetector
	foods  FoodCatalog
	recs   Recommender
	norm   Normalizer
	log    *zap.Logger
}

// NewScanService wires the capture pipeline. A nil db skips persistence.
func NewScanService(db *gorm.DB, images ImageStore, labels LabelDetector, foods FoodCatalog, recs Recommender, log *zap.Logger) *ScanService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScanService{db: db, images: images, labels: labels, foods: foods, recs: recs, log: log}
}

// WithClock fixes the time used for new analyses.
func (s *ScanService) WithClock(now func() time.Time) *ScanService {
	s.norm.Now = now
	return s
}

func (s *ScanService) Scan(ctx context.Context, personID string, req ScanRequest) (*ScanResult, error) {
	img, err := utils.ParseDataURI(req.Image)
	if err != nil {
		return nil, err
	}

	labels, err := s.labels.RecognizeLabels(ctx, img.Data)
	if err != nil {
		return nil, fmt.Errorf("image recognition failed: %w", err)
	}

	foods := s.lookupFoods(ctx, labels)
	if len(foods) == 0 {
		return nil, ErrNoFoodDetected
	}

	// only images that produce an analysis are kept
	key, err := s.images.Upload(ctx, img, personID)
	if err != nil {
		return nil, fmt.Errorf("image upload failed: %w", err)
	}

	nutrients := make([]map[string]float64, 0, len(foods))
	names := make([]string, 0, len(foods))
	for _, f := range foods {
		nutrients = append(nutrients, f.Nutrients)
		names = append(names, f.Label)
	}
	totals := SumNutrients(nutrients...)

	cs := classifyTotals(totals)
	compatible := utils.RenalCompatible(cs...)
	recText := s.recs.Generate(ctx, names, cs)
	conclusion := scanConclusion(cs)

	result, err := scanResultJSON(foods, totals, cs, compatible, recText, key)
	if err != nil {
		return nil, fmt.Errorf("encode analysis result: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.Join(names, ", ")
	}
	now := time.Now()
	if s.norm.Now != nil {
		now = s.norm.Now()
	}
	analysis := &models.Analysis{
		PersonID:        personID,
		ImageRef:        key,
		AnalyzedAt:      now.UTC(),
		Name:            name,
		Conclusion:      conclusion,
		RenalCompatible: &compatible,
		Result:          result,
	}
	if s.db != nil {
		if err := s.db.WithContext(ctx).Create(analysis).Error; err != nil {
			return nil, fmt.Errorf("db error saving analysis: %w", err)
		}
	}

	if !compatible {
		EmitAlert(personID, analysis.ID, alertTypeWarn, conclusion)
	}

	s.log.Info("scan analysed",
		zap.String("person_id", personID),
		zap.Uint("analysis_id", analysis.ID),
		zap.Strings("foods", names),
		zap.Bool("renal_compatible", compatible),
	)

	raw := analysis.Raw()
	if s.db == nil {
		delete(raw, "id")
	}
	rec := s.norm.Normalize(raw, personID)
	rec.CapturedImageURL = utils.ImageURL(key)
	return &ScanResult{
		Analysis: rec,
		Minerals: MineralSummaryFromTotals(totals, SourceFoodDatabase),
	}, nil
}

// lookupFoods resolves the first few labels against the food catalog.
// Labels the catalog cannot match are skipped.
func (s *ScanService) lookupFoods(ctx context.Context, labels []string) []scannedFood {
	var out []scannedFood
	for _, label := range labels {
		if len(out) == maxLookups {
			break
		}
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		hits, err := s.foods.SearchFoods(ctx, label)
		if err != nil || len(hits) == 0 {
			s.log.Debug("no catalog match", zap.String("label", label), zap.Error(err))
			continue
		}
		nut, err := s.foods.AnalyzeFood(ctx, hits[0].FoodID, MeasureGram, portionGrams)
		if err != nil {
			s.log.Warn("nutrient lookup failed", zap.String("label", label), zap.Error(err))
			continue
		}
		out = append(out, scannedFood{Label: label, Match: hits[0].Label, Nutrients: nut})
	}
	return out
}

// SumNutrients adds Edamam nutrient maps into canonical totals.
func SumNutrients(maps ...map[string]float64) models.NutrientTotals {
	var t models.NutrientTotals
	for _, n := range maps {
		t.Energy += n["ENERC_KCAL"]
		t.Protein += n["PROCNT"]
		t.Carbohydrate += n["CHOCDF"]
		t.Fat += n["FAT"]
		t.Sodium += n["NA"]
		t.Potassium += n["K"]
		t.Phosphorus += n["P"]
	}
	return t
}

func classifyTotals(t models.NutrientTotals) []utils.Classification {
	return []utils.Classification{
		utils.Classify(utils.Sodium, t.Sodium),
		utils.Classify(utils.Potassium, t.Potassium),
		utils.Classify(utils.Phosphorus, t.Phosphorus),
	}
}

func scanConclusion(cs []utils.Classification) string {
	var over, near []string
	for _, c := range cs {
		switch c.Status {
		case utils.StatusExceeded:
			over = append(over, string(c.Mineral))
		case utils.StatusWarning:
			near = append(near, string(c.Mineral))
		}
	}
	switch {
	case len(over) > 0:
		return "Not suitable for a renal diet: " + strings.Join(over, ", ") + " above the per-meal limit."
	case len(near) > 0:
		return "Suitable in moderation: " + strings.Join(near, ", ") + " close to the per-meal limit."
	default:
		return "Suitable for a renal diet."
	}
}

// scanResultJSON builds the stored result payload. texto_original is kept
// as a JSON string, matching what the legacy analysis backend stored.
func scanResultJSON(foods []scannedFood, t models.NutrientTotals, cs []utils.Classification, compatible bool, recText, imageKey string) (string, error) {
	detected := make([]map[string]any, 0, len(foods))
	for _, f := range foods {
		detected = append(detected, map[string]any{
			"nombre":   f.Label,
			"cantidad": portionGrams,
			"unidad":   "g",
			"match":    f.Match,
		})
	}
	compat := make(map[string]any, len(cs))
	for _, c := range cs {
		compat[spanishMineralKeys[c.Mineral]] = map[string]any{
			"compatible": c.Status != utils.StatusExceeded,
			"valor":      c.Value,
		}
	}
	text := map[string]any{
		"alimentos_detectados": detected,
		"totales": map[string]any{
			"energia":          t.Energy,
			"proteinas":        t.Protein,
			"hidratos_carbono": t.Carbohydrate,
			"lipidos":          t.Fat,
			"sodio":            t.Sodium,
			"potasio":          t.Potassium,
			"fosforo":          t.Phosphorus,
		},
		"compatibilidad_renal": compatible,
		"compatibilidad":       compat,
		"recomendaciones":      recText,
		"fuente_valores":       SourceFoodDatabase,
	}
	textJSON, err := json.Marshal(text)
	if err != nil {
		return "", err
	}
	result, err := json.Marshal(map[string]any{
		"texto_original":       string(textJSON),
		"recomendaciones":      recText,
		"compatibilidad_renal": compatible,
		"imagen_analizada":     imageKey,
	})
	if err != nil {
		return "", err
	}
	return string(result), nil
}
