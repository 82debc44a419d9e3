package memory

import (
	"context"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"turnos/ticket-service/internal/models"
	"turnos/ticket-service/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Notifier receives an event name and payload after every successful
// mutation. The payload is whatever the mutation produced, typically the
// updated ticket.
type Notifier func(eventType string, payload interface{})

const (
	EventTicketCreated    = "ticket_created"
	EventTicketStarted    = "ticket_started"
	EventTicketCompleted  = "ticket_completed"
	EventServiceCompleted = "service_completed"
	EventCustomerCalled   = "customer_called"
	EventCallingCleared   = "calling_cleared"
	EventTimeUpdated      = "time_updated"
	EventSettingsUpdated  = "settings_updated"
)

type Options struct {
	Snapshotter store.Snapshotter
	Notifier    Notifier
	// PasswordHash, when set, replaces the plain-equality manager password
	// check with a bcrypt comparison against this hash.
	PasswordHash string
}

// Store owns the full system state. All mutation flows through its methods;
// every successful mutation is flushed to the snapshotter and announced via
// the notifier.
type Store struct {
	mu           sync.Mutex
	state        store.SystemState
	snapshots    store.Snapshotter
	notify       Notifier
	passwordHash string
}

// New builds a store from the saved snapshot when one exists, falling back
// to the default empty state when the snapshot is absent or unreadable.
func New(ctx context.Context, opts Options) *Store {
	state := store.DefaultState()
	if opts.Snapshotter != nil {
		loaded, found, err := opts.Snapshotter.Load(ctx)
		if err != nil {
			log.Printf("snapshot load error, starting empty: %v", err)
		} else if found {
			state = loaded
		}
	}
	state.Normalize()
	return &Store{
		state:        state,
		snapshots:    opts.Snapshotter,
		notify:       opts.Notifier,
		passwordHash: opts.PasswordHash,
	}
}

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		return models.Ticket{}, store.ErrInvalidInput
	}
	if len(input.Services) == 0 {
		return models.Ticket{}, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, service := range input.Services {
		if _, ok := s.state.ServiceSettings[service]; !ok {
			return models.Ticket{}, store.ErrUnknownService
		}
	}

	estimated := input.CustomTime
	if estimated <= 0 {
		estimated = s.totalTimeLocked(input.Services)
	}

	services := make([]models.ServiceType, len(input.Services))
	copy(services, input.Services)
	statuses := make([]models.ServiceStatus, 0, len(services))
	for _, service := range services {
		statuses = append(statuses, models.ServiceStatus{Service: service})
	}

	ticket := models.Ticket{
		ID:              uuid.NewString(),
		TicketNumber:    s.state.CurrentTicketNumber,
		CustomerName:    name,
		Service:         services[0],
		Services:        services,
		ServiceStatuses: statuses,
		EstimatedTime:   estimated,
		Status:          models.StatusWaiting,
		CreatedAt:       input.CreatedAt,
		Notes:           strings.TrimSpace(input.Notes),
		POSTicketNumber: strings.TrimSpace(input.POSTicketNumber),
	}

	s.state.Tickets = append(s.state.Tickets, ticket)
	s.state.CurrentTicketNumber++
	s.persistLocked(ctx)
	s.notifyEvent(EventTicketCreated, ticket)
	return ticket, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket := s.findLocked(ticketID)
	if ticket == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return *ticket, nil
}

func (s *Store) ListTickets(ctx context.Context, status string) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Ticket, 0, len(s.state.Tickets))
	for _, ticket := range s.state.Tickets {
		if status != "" && ticket.Status != status {
			continue
		}
		out = append(out, ticket)
	}
	return out, nil
}

func (s *Store) StartTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket := s.findLocked(input.TicketID)
	if ticket == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if !store.ValidTransition("start", ticket.Status) {
		return models.Ticket{}, store.ErrInvalidState
	}

	at := input.OccurredAt
	ticket.Status = models.StatusInProgress
	ticket.StartedAt = &at
	ticket.IsCalling = false
	s.persistLocked(ctx)
	s.notifyEvent(EventTicketStarted, *ticket)
	return *ticket, nil
}

// CompleteTicket is the manual override: it terminates the ticket even when
// some of its services are still marked incomplete.
func (s *Store) CompleteTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket := s.findLocked(input.TicketID)
	if ticket == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if !store.ValidTransition("complete", ticket.Status) {
		return models.Ticket{}, store.ErrInvalidState
	}

	at := input.OccurredAt
	ticket.Status = models.StatusCompleted
	ticket.CompletedAt = &at
	s.persistLocked(ctx)
	s.notifyEvent(EventTicketCompleted, *ticket)
	return *ticket, nil
}

func (s *Store) CompleteService(ctx context.Context, input store.CompleteServiceInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket := s.findLocked(input.TicketID)
	if ticket == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if !store.ValidTransition("complete_service", ticket.Status) {
		return models.Ticket{}, store.ErrInvalidState
	}

	at := input.OccurredAt
	matched := false
	for i := range ticket.ServiceStatuses {
		if ticket.ServiceStatuses[i].Service != input.Service {
			continue
		}
		matched = true
		ticket.ServiceStatuses[i].IsCompleted = true
		ticket.ServiceStatuses[i].CompletedAt = &at
		ticket.ServiceStatuses[i].CompletedBy = input.CompletedBy
	}
	if !matched {
		return models.Ticket{}, store.ErrUnknownService
	}

	completed := ticket.AllServicesCompleted()
	if completed {
		ticket.Status = models.StatusCompleted
		ticket.CompletedAt = &at
	}
	s.persistLocked(ctx)
	s.notifyEvent(EventServiceCompleted, *ticket)
	if completed {
		s.notifyEvent(EventTicketCompleted, *ticket)
	}
	return *ticket, nil
}

// CallCustomer marks the target calling and clears the flag everywhere else,
// keeping at most one calling ticket system-wide.
func (s *Store) CallCustomer(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket := s.findLocked(input.TicketID)
	if ticket == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if !store.ValidTransition("call", ticket.Status) {
		return models.Ticket{}, store.ErrInvalidState
	}

	for i := range s.state.Tickets {
		s.state.Tickets[i].IsCalling = s.state.Tickets[i].ID == input.TicketID
	}
	s.persistLocked(ctx)
	s.notifyEvent(EventCustomerCalled, *ticket)
	return *ticket, nil
}

func (s *Store) ClearCalling(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket := s.findLocked(input.TicketID)
	if ticket == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if !ticket.IsCalling {
		return *ticket, nil
	}
	ticket.IsCalling = false
	s.persistLocked(ctx)
	s.notifyEvent(EventCallingCleared, *ticket)
	return *ticket, nil
}

// UpdateEstimatedTime overwrites the estimate without range checks; keeping
// the new value above the already-elapsed time is the caller's concern.
func (s *Store) UpdateEstimatedTime(ctx context.Context, input store.UpdateTimeInput) (models.Ticket, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.passwordOKLocked(input.Password) {
		return models.Ticket{}, false, nil
	}
	ticket := s.findLocked(input.TicketID)
	if ticket == nil {
		return models.Ticket{}, true, store.ErrTicketNotFound
	}
	ticket.EstimatedTime = input.NewTime
	s.persistLocked(ctx)
	s.notifyEvent(EventTimeUpdated, *ticket)
	return *ticket, true, nil
}

func (s *Store) UpdateServiceSettings(ctx context.Context, input store.UpdateSettingsInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.passwordOKLocked(input.Password) {
		return false, nil
	}
	if len(input.Settings) == 0 {
		return true, store.ErrInvalidInput
	}
	s.state.ServiceSettings = input.Settings.Clone()
	s.persistLocked(ctx)
	s.notifyEvent(EventSettingsUpdated, s.state.ServiceSettings)
	return true, nil
}

func (s *Store) CalculateTotalTime(services []models.ServiceType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTimeLocked(services)
}

func (s *Store) GetServiceLabel(service models.ServiceType) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.state.ServiceSettings[service]; ok && cfg.Name != "" {
		return cfg.Name
	}
	return strings.ToUpper(string(service))
}

func (s *Store) Settings(ctx context.Context) (models.ServiceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ServiceSettings.Clone(), nil
}

func (s *Store) GenerateDailyReport(ctx context.Context, now time.Time) (models.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := models.DailyReport{
		Date:    now.Format("2006-01-02"),
		Tickets: []models.Ticket{},
	}
	for _, ticket := range s.state.Tickets {
		if !sameDay(ticket.CreatedAt, now) {
			continue
		}
		report.TotalTickets++
		report.Tickets = append(report.Tickets, ticket)
		if ticket.Status != models.StatusCompleted || ticket.StartedAt == nil || ticket.CompletedAt == nil {
			continue
		}
		actual := ticket.CompletedAt.Sub(*ticket.StartedAt).Minutes()
		if actual <= float64(ticket.EstimatedTime) {
			report.CompletedOnTime++
		} else {
			report.Overdue++
		}
	}
	return report, nil
}

// QueueSnapshot assembles the waiting-room view: the calling ticket, work in
// progress with elapsed/remaining minutes, and the waiting line with a
// cumulative wait estimate per position.
func (s *Store) QueueSnapshot(ctx context.Context, now time.Time) (store.QueueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := store.QueueSnapshot{
		Waiting:     []store.QueueEntry{},
		InProgress:  []store.InProgressEntry{},
		GeneratedAt: now,
	}

	inProgressRemaining := 0.0
	for _, ticket := range s.state.Tickets {
		if ticket.IsCalling {
			calling := ticket
			snapshot.Calling = &calling
		}
		if ticket.Status != models.StatusInProgress {
			continue
		}
		elapsed := 0.0
		if ticket.StartedAt != nil {
			elapsed = now.Sub(*ticket.StartedAt).Minutes()
		}
		remaining := math.Max(0, float64(ticket.EstimatedTime)-elapsed)
		inProgressRemaining += remaining
		snapshot.InProgress = append(snapshot.InProgress, store.InProgressEntry{
			Ticket:           ticket,
			ElapsedMinutes:   int(elapsed),
			RemainingMinutes: int(math.Ceil(remaining)),
			Overdue:          elapsed > float64(ticket.EstimatedTime),
		})
	}

	ahead := 0.0
	position := 0
	for _, ticket := range s.state.Tickets {
		if ticket.Status != models.StatusWaiting {
			continue
		}
		position++
		snapshot.Waiting = append(snapshot.Waiting, store.QueueEntry{
			Ticket:        ticket,
			Position:      position,
			EstimatedWait: int(math.Ceil(ahead + inProgressRemaining)),
		})
		ahead += float64(ticket.EstimatedTime)
	}
	return snapshot, nil
}

func (s *Store) OverdueTickets(ctx context.Context, now time.Time) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Ticket{}
	for _, ticket := range s.state.Tickets {
		if ticket.Status != models.StatusInProgress || ticket.StartedAt == nil {
			continue
		}
		if now.Sub(*ticket.StartedAt).Minutes() > float64(ticket.EstimatedTime) {
			out = append(out, ticket)
		}
	}
	return out, nil
}

func (s *Store) Snapshot(ctx context.Context) (store.SystemState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), nil
}

func (s *Store) totalTimeLocked(services []models.ServiceType) int {
	total := 0
	for _, service := range services {
		total += s.state.ServiceSettings[service].DefaultTime
	}
	if total > 0 {
		return total
	}
	return 15
}

func (s *Store) passwordOKLocked(password string) bool {
	if s.passwordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)) == nil
	}
	return password == s.state.ManagerPassword
}

func (s *Store) findLocked(ticketID string) *models.Ticket {
	for i := range s.state.Tickets {
		if s.state.Tickets[i].ID == ticketID {
			return &s.state.Tickets[i]
		}
	}
	return nil
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, s.state.Clone()); err != nil {
		log.Printf("snapshot save error: %v", err)
	}
}

func (s *Store) notifyEvent(eventType string, payload interface{}) {
	if s.notify == nil {
		return
	}
	s.notify(eventType, payload)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
