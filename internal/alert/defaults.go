package alert

import (
	"fmt"

	"github.com/calleye/internal/models"
	"gorm.io/gorm"
)

// CreateDefaultAlerts seeds a starter rule set for a new organization.
func CreateDefaultAlerts(db *gorm.DB, orgID string) error {
	alerts := []models.Alert{
		{
			OrganizationID:    orgID,
			Name:              "High Error Rate",
			Description:       "Alert when more than 20% of calls fail within the last hour",
			MetricType:        models.MetricErrorRate,
			Aggregation:       models.AggregationCount,
			Operator:          models.OperatorGT,
			ThresholdValue:    20,
			TimeWindowMinutes: 60,
			NotifyFrequency:   models.FrequencyHourly,
			Status:            models.AlertStatusActive,
		},
		{
			OrganizationID:    orgID,
			Name:              "Low Success Rate",
			Description:       "Alert when fewer than 80% of calls complete within the last hour",
			MetricType:        models.MetricSuccessRate,
			Aggregation:       models.AggregationCount,
			Operator:          models.OperatorLT,
			ThresholdValue:    80,
			TimeWindowMinutes: 60,
			NotifyFrequency:   models.FrequencyHourly,
			Status:            models.AlertStatusActive,
		},
		{
			OrganizationID:    orgID,
			Name:              "Long Average Call Duration",
			Description:       "Alert when the average call runs longer than 10 minutes",
			MetricType:        models.MetricCallDuration,
			Aggregation:       models.AggregationAvg,
			Operator:          models.OperatorGT,
			ThresholdValue:    600,
			TimeWindowMinutes: 60,
			NotifyFrequency:   models.FrequencyDaily,
			Status:            models.AlertStatusActive,
		},
	}

	for _, a := range alerts {
		if err := db.Create(&a).Error; err != nil {
			return fmt.Errorf("failed to create default alert %s: %v", a.Name, err)
		}
	}

	return nil
}
