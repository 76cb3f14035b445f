package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"renalscan/utils"

	"go.uber.org/zap"
)

const (
	StatusLabelRecommended    = "Recommended for renal patients"
	StatusLabelNotRecommended = "Not recommended for renal patients"

	// texts longer than this are shown collapsed with a "see more" toggle
	expandableAfter = 100
)

// RecommendationView is what the recommendations card renders.
type RecommendationView struct {
	Text        string `json:"text"`
	Compatible  *bool  `json:"compatible"`
	StatusLabel string `json:"status_label"`
	Expandable  bool   `json:"expandable"`
}

// ResolveRecommendations picks the recommendation text and compatibility
// flag from the places an analysis result may carry them. It returns nil
// when no recommendation text exists.
func ResolveRecommendations(analysisText any, fullResult map[string]any) *RecommendationView {
	textObj, _ := analysisText.(map[string]any)

	var text string
	if s, ok := asText(fullResult["recomendaciones"]); ok {
		text = s
	} else if s, ok := asText(textObj["recomendaciones"]); ok {
		text = s
	} else if s, ok := analysisText.(string); ok && strings.Contains(s, "recomienda") {
		text = s
	}
	if text == "" {
		return nil
	}

	view := &RecommendationView{
		Text:        text,
		StatusLabel: StatusLabelRecommended,
		Expandable:  utf8.RuneCountInString(text) > expandableAfter,
	}
	if b, ok := firstOf(fullResult, asBool,
		at("compatibilidad_renal"),
		func(map[string]any) (any, bool) { return lookup(textObj, "compatibilidad_renal") },
		at("compatible_con_perfil"),
	); ok {
		view.Compatible = &b
	}
	// only an explicit false flips the badge
	if view.Compatible != nil && !*view.Compatible {
		view.StatusLabel = StatusLabelNotRecommended
	}
	return view
}

// RecService writes recommendation text for a new scan. Without a
// Hugging Face token, or when the inference call fails, it falls back to
// rule-based advice derived from the mineral classifications.
type RecService struct {
	client   *http.Client
	token    string
	model    string
	endpoint string
	log      *zap.Logger
}

func NewRecService(log *zap.Logger) *RecService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecService{
		client:   &http.Client{Timeout: 15 * time.Second}, // give a bit more time
		token:    os.Getenv("HUGGINGFACE_TOKEN"),
		model:    "google/flan-t5-small",
		endpoint: "https://api-inference.huggingface.co/models/",
		log:      log,
	}
}

func (r *RecService) Generate(ctx context.Context, foods []string, cs []utils.Classification) string {
	if r.token != "" {
		text, err := r.generateHF(ctx, foods, cs)
		if err == nil {
			return text
		}
		r.log.Warn("hf recommendations failed, using rule-based text", zap.Error(err))
	}
	return RuleBasedRecommendations(cs)
}

func (r *RecService) generateHF(ctx context.Context, foods []string, cs []utils.Classification) (string, error) {
	var sb bytes.Buffer
	sb.WriteString("A patient with chronic kidney disease is about to eat: ")
	if len(foods) == 0 {
		sb.WriteString("(unidentified food)")
	} else {
		sb.WriteString(strings.Join(foods, ", "))
	}
	sb.WriteString(".\nMineral content of the meal:\n")
	for _, c := range cs {
		sb.WriteString(fmt.Sprintf("- %s: %.0f mg (%d%% of the per-meal limit, %s)\n",
			c.Mineral, c.Value, c.PercentOfLimit, strings.ToLower(string(c.Status))))
	}
	sb.WriteString("\nGive 2-3 short, practical recommendations for a renal diet. Return plain sentences.")

	body := map[string]any{
		"inputs": sb.String(),
		"parameters": map[string]any{
			"max_new_tokens": 128,
			"temperature":    0.2,
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal hf payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+r.model, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create hf request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-wait-for-model", "true")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("hf request error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read hf response error: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var hfErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBytes, &hfErr) == nil && hfErr.Error != "" {
			return "", fmt.Errorf("hf api error (%d): %s", resp.StatusCode, hfErr.Error)
		}
		return "", fmt.Errorf("hf api error (%d): %s", resp.StatusCode, preview(respBytes))
	}

	var hfOut []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(respBytes, &hfOut); err != nil {
		return "", fmt.Errorf("decode hf response error: %v | body: %s", err, preview(respBytes))
	}
	if len(hfOut) == 0 || strings.TrimSpace(hfOut[0].GeneratedText) == "" {
		return "", fmt.Errorf("empty recommendations from hf")
	}
	return strings.TrimSpace(hfOut[0].GeneratedText), nil
}

var mineralAdvice = map[utils.Mineral]struct{ warning, exceeded string }{
	utils.Sodium: {
		warning:  "Sodium is close to the per-meal limit; avoid adding salt or salty sauces.",
		exceeded: "Sodium exceeds the per-meal limit; choose fresh, unprocessed foods and skip added salt.",
	},
	utils.Potassium: {
		warning:  "Potassium is close to the per-meal limit; consider leaching vegetables (soak and boil) before cooking.",
		exceeded: "Potassium exceeds the per-meal limit; reduce the portion or swap high-potassium items such as bananas, potatoes or tomatoes.",
	},
	utils.Phosphorus: {
		warning:  "Phosphorus is close to the per-meal limit; limit dairy and processed meats in this meal.",
		exceeded: "Phosphorus exceeds the per-meal limit; avoid colas, processed cheese and foods with phosphate additives, and take binders if prescribed.",
	},
}

// RuleBasedRecommendations writes one sentence per mineral above GOOD.
func RuleBasedRecommendations(cs []utils.Classification) string {
	var lines []string
	for _, c := range cs {
		advice, ok := mineralAdvice[c.Mineral]
		if !ok {
			continue
		}
		switch c.Status {
		case utils.StatusWarning:
			lines = append(lines, advice.warning)
		case utils.StatusExceeded:
			lines = append(lines, advice.exceeded)
		}
	}
	if len(lines) == 0 {
		return "This meal is within the recommended sodium, potassium and phosphorus limits for renal patients. Keep portions moderate and follow your fluid allowance."
	}
	return strings.Join(lines, " ")
}
