package services

import (
	"context"
	"errors"
	"fmt"

	"renalscan/config"
	"renalscan/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrAnalysisNotFound = errors.New("analysis not found")

const (
	AdvisorySignIn      = "You need to sign in to see your previous analyses."
	AdvisoryUnavailable = "Your previous analyses could not be loaded right now. Please try again later."
)

// StoreHistorySource lists analyses saved by this service.
type StoreHistorySource struct {
	db *gorm.DB
}

func NewStoreHistorySource(db *gorm.DB) *StoreHistorySource {
	if db == nil {
		db = config.DB
	}
	return &StoreHistorySource{db: db}
}

func (s *StoreHistorySource) ListRaw(ctx context.Context, userID string) ([]map[string]any, error) {
	var rows []models.Analysis
	if err := s.db.WithContext(ctx).
		Where("person_id = ?", userID).
		Order("analyzed_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("db error fetching analyses: %w", err)
	}
	out := make([]map[string]any, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Raw())
	}
	return out, nil
}

// HistoryResult is what the previous-analyses modal needs. Advisory is set
// instead of an error whenever the list could not be produced.
type HistoryResult struct {
	Analyses []models.HistoryEntry `json:"analyses"`
	Advisory string                `json:"advisory,omitempty"`
}

type HistoryService struct {
	src      HistorySource
	norm     Normalizer
	imageURL func(string) string
	log      *zap.Logger
}

// NewHistoryService wires a source; imageURL turns stored image refs into
// public URLs and may be nil.
func NewHistoryService(src HistorySource, imageURL func(string) string, log *zap.Logger) *HistoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryService{src: src, imageURL: imageURL, log: log}
}

func (h *HistoryService) List(ctx context.Context, userID string) HistoryResult {
	res := HistoryResult{Analyses: []models.HistoryEntry{}}
	if userID == "" {
		res.Advisory = AdvisorySignIn
		return res
	}
	records, err := h.src.ListRaw(ctx, userID)
	if err != nil {
		h.log.Error("loading previous analyses failed", zap.String("user_id", userID), zap.Error(err))
		res.Advisory = AdvisoryUnavailable
		return res
	}
	for _, r := range FilterByUser(records, userID) {
		res.Analyses = append(res.Analyses, historyEntry(r, h.imageURL))
	}
	return res
}

// Select returns the normalized record the results view opens.
func (h *HistoryService) Select(ctx context.Context, userID, analysisID string) (*models.AnalysisRecord, error) {
	records, err := h.src.ListRaw(ctx, userID)
	if err != nil {
		return nil, err
	}
	// sources may return rows of other people; never hand those out
	for _, r := range FilterByUser(records, userID) {
		if id, ok := asID(r["id"]); ok && id == analysisID {
			rec := h.Normalize(r, userID)
			return &rec, nil
		}
	}
	return nil, ErrAnalysisNotFound
}

// Normalize also resolves the public image URL.
func (h *HistoryService) Normalize(raw map[string]any, userID string) models.AnalysisRecord {
	rec := h.norm.Normalize(raw, userID)
	if rec.CapturedImageRef != nil && h.imageURL != nil {
		rec.CapturedImageURL = h.imageURL(*rec.CapturedImageRef)
	}
	return rec
}
