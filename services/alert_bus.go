package services

import (
	"fmt"
	"time"

	"renalscan/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type alertDeps struct {
	db  *gorm.DB
	rt  *RealtimeHub
	ps  *PushService
	log *zap.Logger
}

var _alert alertDeps

func InitAlertDeps(db *gorm.DB, rt *RealtimeHub, ps *PushService, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	_alert = alertDeps{db: db, rt: rt, ps: ps, log: log}
}

// EmitAlert stores an alert for a person and fans it out over the
// websocket hub and push notifications. Safe to call before init.
func EmitAlert(personID string, analysisID uint, typ, message string) {
	if _alert.db == nil {
		return
	}
	a := &models.Alert{PersonID: personID, AnalysisID: analysisID, Type: typ, Message: message, CreatedAt: time.Now()}
	if err := _alert.db.Create(a).Error; err != nil {
		_alert.log.Warn("store alert", zap.String("person_id", personID), zap.Error(err))
	}

	if _alert.rt != nil {
		_alert.rt.BroadcastAlert(personID, map[string]any{
			"kind":  "alert.created",
			"alert": a,
		})
	}
	if _alert.ps != nil {
		_alert.ps.PushToPerson(personID, "Renal alert", message, map[string]string{
			"type":       typ,
			"alertId":    fmt.Sprintf("%d", a.ID),
			"analysisId": fmt.Sprintf("%d", analysisID),
		})
	}
}
