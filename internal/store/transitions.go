package store

import "turnos/ticket-service/internal/models"

// completed is terminal: no action below accepts it as a source status.
var transitionMap = map[string][]string{
	"start":            {models.StatusWaiting},
	"complete":         {models.StatusWaiting, models.StatusInProgress},
	"complete_service": {models.StatusWaiting, models.StatusInProgress},
	"call":             {models.StatusWaiting, models.StatusInProgress},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
