package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// MeasureGram is the Edamam measure used for per-100 g lookups.
const MeasureGram = "http://www.edamam.com/ontologies/edamam.owl#Measure_gram"

type EdamamService struct {
	foodAppID, foodAppKey   string
	nutriAppID, nutriAppKey string
	baseURL                 string
	client                  *http.Client
}

// NewEdamamService initializes the EdamamService with credentials and HTTP client
func NewEdamamService() *EdamamService {
	return &EdamamService{
		foodAppID:   os.Getenv("EDAMAM_APP_ID"),
		foodAppKey:  os.Getenv("EDAMAM_APP_KEY"),
		nutriAppID:  os.Getenv("EDAMAM_NUTRI_APP_ID"),
		nutriAppKey: os.Getenv("EDAMAM_NUTRI_APP_KEY"),
		baseURL:     "https://api.edamam.com",
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the service at another host (used by tests).
func (s *EdamamService) WithBaseURL(u string) *EdamamService {
	s.baseURL = strings.TrimRight(u, "/")
	return s
}

type FoodHit struct {
	FoodID   string `json:"food_id"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

type foodParserResponse struct {
	Hints []struct {
		Food struct {
			FoodID   string `json:"foodId"`
			Label    string `json:"label"`
			Category string `json:"category"`
		} `json:"food"`
	} `json:"hints"`
}

// SearchFoods calls the Edamam Food Database API parser endpoint
func (s *EdamamService) SearchFoods(ctx context.Context, query string) ([]FoodHit, error) {
	q := url.Values{
		"ingr":    {query},
		"app_id":  {s.foodAppID},
		"app_key": {s.foodAppKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/food-database/v2/parser?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser request: %w", err)
	}

	body, err := s.do(req, "parser")
	if err != nil {
		return nil, err
	}

	var pr foodParserResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("failed to parse Edamam parser JSON: %w", err)
	}

	results := make([]FoodHit, 0, len(pr.Hints))
	for _, h := range pr.Hints {
		results = append(results, FoodHit{
			FoodID:   h.Food.FoodID,
			Label:    h.Food.Label,
			Category: h.Food.Category,
		})
	}
	return results, nil
}

type nutritionResponse struct {
	TotalNutrients map[string]struct {
		Quantity float64 `json:"quantity"`
	} `json:"totalNutrients"`
}

// AnalyzeFood calls the Edamam nutrients endpoint for a single ingredient
// and flattens totalNutrients to code → quantity (NA, K, P in mg).
func (s *EdamamService) AnalyzeFood(ctx context.Context, foodID, measureURI string, qty float64) (map[string]float64, error) {
	payload := map[string]any{
		"ingredients": []map[string]any{{
			"quantity":   qty,
			"measureURI": measureURI,
			"foodId":     foodID,
		}},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nutrition payload: %w", err)
	}

	q := url.Values{"app_id": {s.nutriAppID}, "app_key": {s.nutriAppKey}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/food-database/v2/nutrients?"+q.Encode(), bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create nutrition request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := s.do(req, "nutrition")
	if err != nil {
		return nil, err
	}

	var nr nutritionResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return nil, fmt.Errorf("failed to parse nutrition JSON: %w", err)
	}

	nut := make(map[string]float64, len(nr.TotalNutrients))
	for k, v := range nr.TotalNutrients {
		nut[k] = v.Quantity
	}
	return nut, nil
}

func (s *EdamamService) do(req *http.Request, api string) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Edamam %s API: %w", api, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Edamam %s response: %w", api, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edamam %s API error %d: %s", api, resp.StatusCode, preview(body))
	}
	return body, nil
}
