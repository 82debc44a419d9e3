package store

import (
	"turnos/ticket-service/internal/models"
)

const DefaultManagerPassword = "admin123"

// SystemState is the persisted form of the whole store. The camelCase keys
// and RFC3339 date encoding are a compatibility contract with state files
// written by earlier versions of the system.
type SystemState struct {
	Tickets             []models.Ticket        `json:"tickets"`
	CurrentTicketNumber int                    `json:"currentTicketNumber"`
	ManagerPassword     string                 `json:"managerPassword"`
	ServiceSettings     models.ServiceSettings `json:"serviceSettings"`
}

func DefaultState() SystemState {
	return SystemState{
		Tickets:             []models.Ticket{},
		CurrentTicketNumber: 1,
		ManagerPassword:     DefaultManagerPassword,
		ServiceSettings:     models.DefaultServiceSettings(),
	}
}

// Normalize repairs a loaded state: missing settings fall back to the
// defaults, the counter is advanced past any persisted ticket number, and
// legacy tickets that predate per-service tracking get their serviceStatuses
// backfilled (complete only when the ticket itself already completed).
func (s *SystemState) Normalize() {
	if s.Tickets == nil {
		s.Tickets = []models.Ticket{}
	}
	if s.CurrentTicketNumber < 1 {
		s.CurrentTicketNumber = 1
	}
	if s.ManagerPassword == "" {
		s.ManagerPassword = DefaultManagerPassword
	}
	if len(s.ServiceSettings) == 0 {
		s.ServiceSettings = models.DefaultServiceSettings()
	}
	for i := range s.Tickets {
		ticket := &s.Tickets[i]
		if len(ticket.Services) == 0 && ticket.Service != "" {
			ticket.Services = []models.ServiceType{ticket.Service}
		}
		if ticket.Service == "" && len(ticket.Services) > 0 {
			ticket.Service = ticket.Services[0]
		}
		if len(ticket.ServiceStatuses) == 0 && len(ticket.Services) > 0 {
			completed := ticket.Status == models.StatusCompleted
			statuses := make([]models.ServiceStatus, 0, len(ticket.Services))
			for _, service := range ticket.Services {
				status := models.ServiceStatus{Service: service, IsCompleted: completed}
				if completed {
					status.CompletedAt = ticket.CompletedAt
				}
				statuses = append(statuses, status)
			}
			ticket.ServiceStatuses = statuses
		}
		if ticket.TicketNumber >= s.CurrentTicketNumber {
			s.CurrentTicketNumber = ticket.TicketNumber + 1
		}
	}
}

// Clone returns a deep copy safe to hand to callers while the store keeps
// mutating its own state.
func (s SystemState) Clone() SystemState {
	out := SystemState{
		Tickets:             make([]models.Ticket, len(s.Tickets)),
		CurrentTicketNumber: s.CurrentTicketNumber,
		ManagerPassword:     s.ManagerPassword,
		ServiceSettings:     s.ServiceSettings.Clone(),
	}
	for i, ticket := range s.Tickets {
		out.Tickets[i] = cloneTicket(ticket)
	}
	return out
}

func cloneTicket(t models.Ticket) models.Ticket {
	if len(t.Services) > 0 {
		services := make([]models.ServiceType, len(t.Services))
		copy(services, t.Services)
		t.Services = services
	}
	if len(t.ServiceStatuses) > 0 {
		statuses := make([]models.ServiceStatus, len(t.ServiceStatuses))
		copy(statuses, t.ServiceStatuses)
		t.ServiceStatuses = statuses
	}
	return t
}
