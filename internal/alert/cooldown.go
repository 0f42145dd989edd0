package alert

import (
	"errors"
	"fmt"
	"time"

	"github.com/calleye/internal/models"
	"gorm.io/gorm"
)

// CooldownGate enforces the minimum interval between notifications for an
// alert, based on its most recent successfully notified history row.
type CooldownGate struct {
	db *gorm.DB
}

func NewCooldownGate(db *gorm.DB) *CooldownGate {
	return &CooldownGate{db: db}
}

// ShouldNotify reports whether the alert is allowed to notify now. It is
// checked before any metric work, so a denied alert skips evaluation
// entirely.
func (g *CooldownGate) ShouldNotify(a *models.Alert) (bool, error) {
	cooldown := a.NotifyFrequency.CooldownSeconds()
	if cooldown == 0 {
		return true, nil
	}

	var last models.AlertHistory
	err := g.db.Where("alert_id = ? AND notified_at IS NOT NULL", a.ID).
		Order("notified_at DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load notification history: %v", err)
	}

	elapsed := time.Since(*last.NotifiedAt)
	return elapsed >= time.Duration(cooldown)*time.Second, nil
}
