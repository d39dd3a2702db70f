package engine

import "github.com/miradorstack/realitycheck/internal/models"

// Decide returns BLOCKED if any review is a blocker, OK otherwise.
func Decide(reviews []models.DimensionReview) models.GateStatus {
	for _, review := range reviews {
		if review.Severity == models.SeverityBlocker {
			return models.StatusBlocked
		}
	}
	return models.StatusOK
}
