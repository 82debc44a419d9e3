package store

import (
	"context"
	"time"

	"turnos/ticket-service/internal/models"
)

type CreateTicketInput struct {
	CustomerName    string
	Services        []models.ServiceType
	CustomTime      int
	Notes           string
	POSTicketNumber string
	CreatedAt       time.Time
}

type TicketActionInput struct {
	TicketID   string
	OccurredAt time.Time
}

type CompleteServiceInput struct {
	TicketID    string
	Service     models.ServiceType
	CompletedBy string
	OccurredAt  time.Time
}

type UpdateTimeInput struct {
	TicketID string
	NewTime  int
	Password string
}

type UpdateSettingsInput struct {
	Settings models.ServiceSettings
	Password string
}

// QueueEntry is one waiting ticket on the display, with its position and the
// cumulative wait estimate ahead of it.
type QueueEntry struct {
	Ticket        models.Ticket `json:"ticket"`
	Position      int           `json:"position"`
	EstimatedWait int           `json:"estimated_wait_minutes"`
}

type InProgressEntry struct {
	Ticket           models.Ticket `json:"ticket"`
	ElapsedMinutes   int           `json:"elapsed_minutes"`
	RemainingMinutes int           `json:"remaining_minutes"`
	Overdue          bool          `json:"overdue"`
}

type QueueSnapshot struct {
	Calling     *models.Ticket    `json:"calling,omitempty"`
	Waiting     []QueueEntry      `json:"waiting"`
	InProgress  []InProgressEntry `json:"in_progress"`
	GeneratedAt time.Time         `json:"generated_at"`
}

type TicketStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	ListTickets(ctx context.Context, status string) ([]models.Ticket, error)
	StartTicket(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	CompleteTicket(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	CompleteService(ctx context.Context, input CompleteServiceInput) (models.Ticket, error)
	CallCustomer(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	ClearCalling(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	UpdateEstimatedTime(ctx context.Context, input UpdateTimeInput) (models.Ticket, bool, error)
	UpdateServiceSettings(ctx context.Context, input UpdateSettingsInput) (bool, error)
	CalculateTotalTime(services []models.ServiceType) int
	GetServiceLabel(service models.ServiceType) string
	Settings(ctx context.Context) (models.ServiceSettings, error)
	GenerateDailyReport(ctx context.Context, now time.Time) (models.DailyReport, error)
	QueueSnapshot(ctx context.Context, now time.Time) (QueueSnapshot, error)
	OverdueTickets(ctx context.Context, now time.Time) ([]models.Ticket, error)
	Snapshot(ctx context.Context) (SystemState, error)
}

// Snapshotter persists the whole system state. Implementations must treat a
// missing or unreadable snapshot as "no saved state" rather than an error
// that blocks startup.
type Snapshotter interface {
	Load(ctx context.Context) (SystemState, bool, error)
	Save(ctx context.Context, state SystemState) error
}
