package browser

import (
	"context"
	"errors"

	"github.com/n8dizzle/Christmas-automations/models"
)

// categorizeError wraps raw errors into typed LookupErrors so callers can
// tell timeouts from navigation failures.
func categorizeError(err error, msg string) *models.LookupError {
	var le *models.LookupError
	if errors.As(err, &le) {
		return le
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewLookupError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewLookupError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewLookupError(models.ErrCodeNavigation, msg, err)
	}
}
