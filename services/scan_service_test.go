package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"renalscan/services"
	"renalscan/utils"
)

type fakeLabels struct {
	labels []string
	err    error
}

func (f fakeLabels) RecognizeLabels(context.Context, []byte) ([]string, error) {
	return f.labels, f.err
}

type fakeCatalog struct {
	nutrients map[string]map[string]float64
	searched  []string
}

func (f *fakeCatalog) SearchFoods(_ context.Context, q string) ([]services.FoodHit, error) {
	f.searched = append(f.searched, q)
	if _, ok := f.nutrients[q]; !ok {
		return nil, nil
	}
	return []services.FoodHit{{FoodID: "food_" + q, Label: q}}, nil
}

func (f *fakeCatalog) AnalyzeFood(_ context.Context, foodID, measure string, qty float64) (map[string]float64, error) {
	if measure != services.MeasureGram || qty != 100 {
		return nil, errors.New("unexpected measure")
	}
	return f.nutrients[strings.TrimPrefix(foodID, "food_")], nil
}

type fixedRecs string

func (r fixedRecs) Generate(context.Context, []string, []utils.Classification) string {
	return string(r)
}

func newScanService(labels []string, cat *fakeCatalog, uploads *int) *services.ScanService {
	store := services.ImageStoreFunc(func(_ context.Context, img *utils.DataURI, personID string) (string, error) {
		*uploads++
		return "analyses/" + personID + "/x" + img.Ext, nil
	})
	return services.NewScanService(nil, store, fakeLabels{labels: labels}, cat, fixedRecs("Reduce the portion."), nil).
		WithClock(func() time.Time { return fixedNow })
}

func TestScanPipeline(t *testing.T) {
	t.Setenv("CLOUDFRONT_URL", "https://cdn.example.com")
	cat := &fakeCatalog{nutrients: map[string]map[string]float64{
		"Banana": {"K": 358, "NA": 1, "P": 22, "ENERC_KCAL": 89},
		"Fruit":  {"K": 200, "NA": 5, "P": 20},
		"Plant":  {"K": 200, "P": 10},
		"Tree":   {"K": 999},
	}}
	var uploads int
	svc := newScanService([]string{"Banana", "Food", "Fruit", "Plant", "Tree"}, cat, &uploads)

	res, err := svc.Scan(context.Background(), "p1", services.ScanRequest{Image: "data:image/png;base64,aGVsbG8="})
	if err != nil {
		t.Fatal(err)
	}
	if uploads != 1 {
		t.Fatalf("uploads=%d", uploads)
	}
	if len(cat.searched) != 4 {
		t.Fatalf("searched %v", cat.searched)
	}

	rec := res.Analysis
	if rec.ID != "1709632800000" || rec.AnalyzedAt != "2024-03-05T10:00:00Z" {
		t.Errorf("id=%s at=%s", rec.ID, rec.AnalyzedAt)
	}
	if rec.PersonID == nil || *rec.PersonID != "p1" {
		t.Errorf("person=%v", rec.PersonID)
	}
	if rec.DisplayName != "Banana, Fruit, Plant" || len(rec.DetectedFoods) != 3 {
		t.Errorf("name=%q foods=%+v", rec.DisplayName, rec.DetectedFoods)
	}
	if rec.NutrientTotals.Potassium != 758 || rec.NutrientTotals.Sodium != 6 || rec.NutrientTotals.Energy != 89 {
		t.Errorf("totals=%+v", rec.NutrientTotals)
	}
	if rec.IsRenalCompatible == nil || *rec.IsRenalCompatible {
		t.Errorf("compatible=%v", rec.IsRenalCompatible)
	}
	if rec.Recommendations == nil || *rec.Recommendations != "Reduce the portion." {
		t.Errorf("recs=%v", rec.Recommendations)
	}
	if rec.CapturedImageURL != "https://cdn.example.com/analyses/p1/x.png" {
		t.Errorf("url=%q", rec.CapturedImageURL)
	}
	if rec.RawSourceText["fuente_valores"] != services.SourceFoodDatabase {
		t.Errorf("source text=%v", rec.RawSourceText)
	}
	if rec.ConclusionText == nil || !strings.Contains(*rec.ConclusionText, "potassium") {
		t.Errorf("conclusion=%v", rec.ConclusionText)
	}
	if res.Minerals.RenalCompatible || res.Minerals.AIEstimate {
		t.Errorf("minerals=%+v", res.Minerals)
	}
}

func TestScanRejectsBadInput(t *testing.T) {
	var uploads int
	svc := newScanService([]string{"Banana"}, &fakeCatalog{}, &uploads)

	if _, err := svc.Scan(context.Background(), "p1", services.ScanRequest{Image: "not-an-image"}); !errors.Is(err, utils.ErrInvalidImage) {
		t.Fatalf("err=%v", err)
	}
	if uploads != 0 {
		t.Fatalf("uploads=%d", uploads)
	}
	if _, err := svc.Scan(context.Background(), "p1", services.ScanRequest{Image: "data:image/png;base64,aGVsbG8="}); !errors.Is(err, services.ErrNoFoodDetected) {
		t.Fatalf("err=%v", err)
	}
	if uploads != 0 {
		t.Fatalf("image stored for a scan without food: uploads=%d", uploads)
	}
}

func TestScanRecognitionFailureStoresNothing(t *testing.T) {
	var uploads int
	store := services.ImageStoreFunc(func(context.Context, *utils.DataURI, string) (string, error) {
		uploads++
		return "analyses/p1/x.png", nil
	})
	labels := fakeLabels{err: errors.New("rekognition throttled")}
	svc := services.NewScanService(nil, store, labels, &fakeCatalog{}, fixedRecs(""), nil)

	_, err := svc.Scan(context.Background(), "p1", services.ScanRequest{Image: "data:image/png;base64,aGVsbG8="})
	if err == nil || !strings.Contains(err.Error(), "rekognition throttled") {
		t.Fatalf("err=%v", err)
	}
	if uploads != 0 {
		t.Fatalf("uploads=%d", uploads)
	}
}

func TestSumNutrients(t *testing.T) {
	got := services.SumNutrients(
		map[string]float64{"NA": 100, "K": 50, "PROCNT": 2, "CHOCDF": 10, "FAT": 1},
		map[string]float64{"NA": 20, "P": 30, "SUGAR": 99},
		nil,
	)
	if got.Sodium != 120 || got.Potassium != 50 || got.Phosphorus != 30 || got.Protein != 2 || got.Carbohydrate != 10 || got.Fat != 1 {
		t.Fatalf("got %+v", got)
	}
}
