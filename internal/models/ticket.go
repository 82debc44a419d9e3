package models

import "time"

// ServiceType tags one offered service. The three defaults below ship with
// the system; settings may introduce additional types at runtime.
type ServiceType string

const (
	ServiceDigitalPrint ServiceType = "impresion-digital"
	ServiceCut          ServiceType = "corte"
	ServiceLaminate     ServiceType = "laminado"
)

const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// StatusLabel returns the customer-facing Spanish label printed on tickets
// and shown on the waiting-room display.
func StatusLabel(status string) string {
	switch status {
	case StatusWaiting:
		return "EN ESPERA"
	case StatusInProgress:
		return "EN PROCESO"
	case StatusCompleted:
		return "COMPLETADO"
	default:
		return status
	}
}

// ServiceStatus tracks completion of a single service on a ticket,
// independent of the ticket's overall status.
type ServiceStatus struct {
	Service     ServiceType `json:"service"`
	IsCompleted bool        `json:"isCompleted"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	CompletedBy string      `json:"completedBy,omitempty"`
}

// Ticket JSON keys follow the persisted-state layout inherited from earlier
// deployments; changing them breaks loading of existing state files.
type Ticket struct {
	ID              string          `json:"id"`
	TicketNumber    int             `json:"ticketNumber"`
	CustomerName    string          `json:"customerName"`
	Service         ServiceType     `json:"service"`
	Services        []ServiceType   `json:"services,omitempty"`
	ServiceStatuses []ServiceStatus `json:"serviceStatuses,omitempty"`
	EstimatedTime   int             `json:"estimatedTime"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	IsCalling       bool            `json:"isCalling"`
	Notes           string          `json:"notes,omitempty"`
	POSTicketNumber string          `json:"posTicketNumber,omitempty"`
}

// AllServicesCompleted reports whether every per-service status on the
// ticket is marked complete. False when the ticket carries no statuses.
func (t Ticket) AllServicesCompleted() bool {
	if len(t.ServiceStatuses) == 0 {
		return false
	}
	for _, status := range t.ServiceStatuses {
		if !status.IsCompleted {
			return false
		}
	}
	return true
}
