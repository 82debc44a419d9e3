package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"turnos/ticket-service/internal/models"
	"turnos/ticket-service/internal/store"
)

type fakeStore struct {
	createTicket          func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error)
	getTicket             func(ctx context.Context, ticketID string) (models.Ticket, error)
	listTickets           func(ctx context.Context, status string) ([]models.Ticket, error)
	startTicket           func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error)
	completeTicket        func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error)
	completeService       func(ctx context.Context, input store.CompleteServiceInput) (models.Ticket, error)
	callCustomer          func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error)
	clearCalling          func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error)
	updateEstimatedTime   func(ctx context.Context, input store.UpdateTimeInput) (models.Ticket, bool, error)
	updateServiceSettings func(ctx context.Context, input store.UpdateSettingsInput) (bool, error)
	calculateTotalTime    func(services []models.ServiceType) int
	settings              func(ctx context.Context) (models.ServiceSettings, error)
	generateDailyReport   func(ctx context.Context, now time.Time) (models.DailyReport, error)
	queueSnapshot         func(ctx context.Context, now time.Time) (store.QueueSnapshot, error)
	overdueTickets        func(ctx context.Context, now time.Time) ([]models.Ticket, error)
	snapshot              func(ctx context.Context) (store.SystemState, error)
}

func (f *fakeStore) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	return f.createTicket(ctx, input)
}

func (f *fakeStore) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	return f.getTicket(ctx, ticketID)
}

func (f *fakeStore) ListTickets(ctx context.Context, status string) ([]models.Ticket, error) {
	return f.listTickets(ctx, status)
}

func (f *fakeStore) StartTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return f.startTicket(ctx, input)
}

func (f *fakeStore) CompleteTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return f.completeTicket(ctx, input)
}

func (f *fakeStore) CompleteService(ctx context.Context, input store.CompleteServiceInput) (models.Ticket, error) {
	return f.completeService(ctx, input)
}

func (f *fakeStore) CallCustomer(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return f.callCustomer(ctx, input)
}

func (f *fakeStore) ClearCalling(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return f.clearCalling(ctx, input)
}

func (f *fakeStore) UpdateEstimatedTime(ctx context.Context, input store.UpdateTimeInput) (models.Ticket, bool, error) {
	return f.updateEstimatedTime(ctx, input)
}

func (f *fakeStore) UpdateServiceSettings(ctx context.Context, input store.UpdateSettingsInput) (bool, error) {
	return f.updateServiceSettings(ctx, input)
}

func (f *fakeStore) CalculateTotalTime(services []models.ServiceType) int {
	if f.calculateTotalTime == nil {
		return 0
	}
	return f.calculateTotalTime(services)
}

func (f *fakeStore) GetServiceLabel(service models.ServiceType) string {
	return strings.ToUpper(string(service))
}

func (f *fakeStore) Settings(ctx context.Context) (models.ServiceSettings, error) {
	return f.settings(ctx)
}

func (f *fakeStore) GenerateDailyReport(ctx context.Context, now time.Time) (models.DailyReport, error) {
	return f.generateDailyReport(ctx, now)
}

func (f *fakeStore) QueueSnapshot(ctx context.Context, now time.Time) (store.QueueSnapshot, error) {
	return f.queueSnapshot(ctx, now)
}

func (f *fakeStore) OverdueTickets(ctx context.Context, now time.Time) ([]models.Ticket, error) {
	return f.overdueTickets(ctx, now)
}

func (f *fakeStore) Snapshot(ctx context.Context) (store.SystemState, error) {
	return f.snapshot(ctx)
}

func serve(t *testing.T, st store.TicketStore, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(st, nil)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error.Code
}

func TestCreateTicket(t *testing.T) {
	var got store.CreateTicketInput
	st := &fakeStore{
		createTicket: func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
			got = input
			return models.Ticket{ID: "t-1", TicketNumber: 1, CustomerName: input.CustomerName, Status: models.StatusWaiting}, nil
		},
	}

	rec := serve(t, st, http.MethodPost, "/api/tickets",
		`{"customer_name":"  Ana  ","services":["impresion-digital","corte"],"custom_time":0,"notes":"urgente"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got.CustomerName != "Ana" {
		t.Fatalf("customer name not trimmed: %q", got.CustomerName)
	}
	if len(got.Services) != 2 || got.Services[0] != models.ServiceDigitalPrint {
		t.Fatalf("services: %v", got.Services)
	}
	if got.Notes != "urgente" {
		t.Fatalf("notes: %q", got.Notes)
	}
	var ticket models.Ticket
	if err := json.NewDecoder(rec.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ticket.ID != "t-1" {
		t.Fatalf("ticket id: %q", ticket.ID)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	st := &fakeStore{
		createTicket: func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
			t.Fatalf("store must not be called on invalid input")
			return models.Ticket{}, nil
		},
	}

	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing name", `{"services":["corte"]}`, "invalid_request"},
		{"blank name", `{"customer_name":"   ","services":["corte"]}`, "invalid_request"},
		{"no services", `{"customer_name":"Ana","services":[]}`, "invalid_request"},
		{"negative time", `{"customer_name":"Ana","services":["corte"],"custom_time":-5}`, "invalid_request"},
		{"unknown field", `{"customer_name":"Ana","services":["corte"],"bogus":1}`, "invalid_json"},
		{"bad json", `{`, "invalid_json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, st, http.MethodPost, "/api/tickets", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status: want 400, got %d", rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != tc.code {
				t.Fatalf("error code: want %s, got %s", tc.code, code)
			}
		})
	}
}

func TestCreateTicketUnknownService(t *testing.T) {
	st := &fakeStore{
		createTicket: func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
			return models.Ticket{}, store.ErrUnknownService
		},
	}

	rec := serve(t, st, http.MethodPost, "/api/tickets", `{"customer_name":"Ana","services":["plotter"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "unknown_service" {
		t.Fatalf("error code: %s", code)
	}
}

func TestListTickets(t *testing.T) {
	var filter string
	st := &fakeStore{
		listTickets: func(ctx context.Context, status string) ([]models.Ticket, error) {
			filter = status
			return []models.Ticket{{ID: "t-1"}, {ID: "t-2"}}, nil
		},
	}

	rec := serve(t, st, http.MethodGet, "/api/tickets?status=waiting", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	if filter != models.StatusWaiting {
		t.Fatalf("filter: %q", filter)
	}
	var tickets []models.Ticket
	if err := json.NewDecoder(rec.Body).Decode(&tickets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("want 2 tickets, got %d", len(tickets))
	}
}

func TestListTicketsRejectsUnknownFilter(t *testing.T) {
	st := &fakeStore{
		listTickets: func(ctx context.Context, status string) ([]models.Ticket, error) {
			t.Fatalf("store must not be called")
			return nil, nil
		},
	}
	rec := serve(t, st, http.MethodGet, "/api/tickets?status=archived", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rec.Code)
	}
}

func TestGetTicketNotFound(t *testing.T) {
	st := &fakeStore{
		getTicket: func(ctx context.Context, ticketID string) (models.Ticket, error) {
			return models.Ticket{}, store.ErrTicketNotFound
		},
	}
	rec := serve(t, st, http.MethodGet, "/api/tickets/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want 404, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "ticket_not_found" {
		t.Fatalf("error code: %s", code)
	}
}

func TestStartTicketConflict(t *testing.T) {
	st := &fakeStore{
		startTicket: func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
			return models.Ticket{}, store.ErrInvalidState
		},
	}
	rec := serve(t, st, http.MethodPost, "/api/tickets/t-1/actions/start", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: want 409, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "invalid_state" {
		t.Fatalf("error code: %s", code)
	}
}

func TestTicketActions(t *testing.T) {
	ok := models.Ticket{ID: "t-1", Status: models.StatusInProgress}
	st := &fakeStore{
		startTicket: func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
			return ok, nil
		},
		completeTicket: func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
			return ok, nil
		},
		callCustomer: func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
			return ok, nil
		},
		clearCalling: func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
			return ok, nil
		},
	}

	for _, action := range []string{"start", "complete", "call", "clear-calling"} {
		rec := serve(t, st, http.MethodPost, "/api/tickets/t-1/actions/"+action, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want 200, got %d (%s)", action, rec.Code, rec.Body.String())
		}
	}

	rec := serve(t, st, http.MethodPost, "/api/tickets/t-1/actions/destroy", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action: want 404, got %d", rec.Code)
	}

	rec = serve(t, st, http.MethodGet, "/api/tickets/t-1/actions/start", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET action: want 405, got %d", rec.Code)
	}
}

func TestCompleteService(t *testing.T) {
	var got store.CompleteServiceInput
	st := &fakeStore{
		completeService: func(ctx context.Context, input store.CompleteServiceInput) (models.Ticket, error) {
			got = input
			return models.Ticket{ID: input.TicketID}, nil
		},
	}

	rec := serve(t, st, http.MethodPost, "/api/tickets/t-1/actions/complete-service",
		`{"service":"corte","completed_by":"Luis"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got.TicketID != "t-1" || got.Service != models.ServiceCut || got.CompletedBy != "Luis" {
		t.Fatalf("input: %+v", got)
	}

	rec = serve(t, st, http.MethodPost, "/api/tickets/t-1/actions/complete-service", `{"completed_by":"Luis"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing service: want 400, got %d", rec.Code)
	}
}

func TestUpdateTime(t *testing.T) {
	st := &fakeStore{
		updateEstimatedTime: func(ctx context.Context, input store.UpdateTimeInput) (models.Ticket, bool, error) {
			if input.Password != "admin123" {
				return models.Ticket{}, false, nil
			}
			return models.Ticket{ID: input.TicketID, EstimatedTime: input.NewTime}, true, nil
		},
	}

	rec := serve(t, st, http.MethodPost, "/api/tickets/t-1/actions/time",
		`{"new_time":45,"password":"admin123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var ticket models.Ticket
	if err := json.NewDecoder(rec.Body).Decode(&ticket); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ticket.EstimatedTime != 45 {
		t.Fatalf("estimated time: %d", ticket.EstimatedTime)
	}

	rec = serve(t, st, http.MethodPost, "/api/tickets/t-1/actions/time",
		`{"new_time":45,"password":"wrong"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad password: want 403, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "invalid_password" {
		t.Fatalf("error code: %s", code)
	}

	rec = serve(t, st, http.MethodPost, "/api/tickets/t-1/actions/time", `{"password":"admin123"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing new_time: want 400, got %d", rec.Code)
	}
}

func TestUpdateTimeNotFoundWithValidPassword(t *testing.T) {
	st := &fakeStore{
		updateEstimatedTime: func(ctx context.Context, input store.UpdateTimeInput) (models.Ticket, bool, error) {
			return models.Ticket{}, true, store.ErrTicketNotFound
		},
	}
	rec := serve(t, st, http.MethodPost, "/api/tickets/missing/actions/time",
		`{"new_time":45,"password":"admin123"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want 404, got %d", rec.Code)
	}
}

func TestServiceSettings(t *testing.T) {
	current := models.DefaultServiceSettings()
	st := &fakeStore{
		settings: func(ctx context.Context) (models.ServiceSettings, error) {
			return current, nil
		},
		updateServiceSettings: func(ctx context.Context, input store.UpdateSettingsInput) (bool, error) {
			if input.Password != "admin123" {
				return false, nil
			}
			current = input.Settings
			return true, nil
		},
	}

	rec := serve(t, st, http.MethodGet, "/api/settings/services", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status: want 200, got %d", rec.Code)
	}

	rec = serve(t, st, http.MethodPut, "/api/settings/services",
		`{"settings":{"corte":{"name":"Corte Fino","defaultTime":20,"enabled":true}},"password":"admin123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status: want 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if current[models.ServiceCut].Name != "Corte Fino" {
		t.Fatalf("settings not applied: %+v", current)
	}

	rec = serve(t, st, http.MethodPut, "/api/settings/services",
		`{"settings":{"corte":{"name":"X","defaultTime":5,"enabled":true}},"password":"wrong"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad password: want 403, got %d", rec.Code)
	}

	rec = serve(t, st, http.MethodPut, "/api/settings/services", `{"settings":{},"password":"admin123"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty settings: want 400, got %d", rec.Code)
	}
}

func TestEstimate(t *testing.T) {
	st := &fakeStore{
		calculateTotalTime: func(services []models.ServiceType) int {
			return 15 * len(services)
		},
	}

	rec := serve(t, st, http.MethodGet, "/api/estimate?services=impresion-digital,corte", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["estimated_minutes"] != 30 {
		t.Fatalf("estimate: %d", resp["estimated_minutes"])
	}

	rec = serve(t, st, http.MethodGet, "/api/estimate", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing services: want 400, got %d", rec.Code)
	}
}

func TestQueue(t *testing.T) {
	st := &fakeStore{
		queueSnapshot: func(ctx context.Context, now time.Time) (store.QueueSnapshot, error) {
			return store.QueueSnapshot{
				Waiting: []store.QueueEntry{
					{Ticket: models.Ticket{ID: "t-1"}, Position: 1, EstimatedWait: 10},
				},
				GeneratedAt: now,
			}, nil
		},
	}

	rec := serve(t, st, http.MethodGet, "/api/queue", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	var snapshot store.QueueSnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snapshot.Waiting) != 1 || snapshot.Waiting[0].EstimatedWait != 10 {
		t.Fatalf("snapshot: %+v", snapshot)
	}
}

func TestPrintTicket(t *testing.T) {
	st := &fakeStore{
		getTicket: func(ctx context.Context, ticketID string) (models.Ticket, error) {
			return models.Ticket{
				ID:           ticketID,
				TicketNumber: 3,
				CustomerName: "Ana",
				Service:      models.ServiceCut,
				Status:       models.StatusWaiting,
				CreatedAt:    time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	rec := serve(t, st, http.MethodGet, "/api/tickets/t-1/print", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type: %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "003") {
		t.Fatalf("document missing padded number")
	}

	rec = serve(t, st, http.MethodGet, "/api/tickets/t-1/print?format=text", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("text status: want 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("text content type: %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "TICKET NUMERO: 003") {
		t.Fatalf("text ticket missing number line")
	}
}

func TestDailyReportAndExport(t *testing.T) {
	completed := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	started := completed.Add(-20 * time.Minute)
	st := &fakeStore{
		generateDailyReport: func(ctx context.Context, now time.Time) (models.DailyReport, error) {
			return models.DailyReport{
				Date:            "2026-03-02",
				TotalTickets:    1,
				CompletedOnTime: 1,
				Tickets: []models.Ticket{{
					ID:            "t-1",
					TicketNumber:  1,
					CustomerName:  "Ana",
					Services:      []models.ServiceType{models.ServiceCut},
					EstimatedTime: 25,
					Status:        models.StatusCompleted,
					CreatedAt:     started.Add(-5 * time.Minute),
					StartedAt:     &started,
					CompletedAt:   &completed,
				}},
			}, nil
		},
	}

	rec := serve(t, st, http.MethodGet, "/api/reports/daily", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("daily status: want 200, got %d", rec.Code)
	}
	var daily models.DailyReport
	if err := json.NewDecoder(rec.Body).Decode(&daily); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if daily.TotalTickets != 1 || daily.CompletedOnTime != 1 {
		t.Fatalf("daily: %+v", daily)
	}

	rec = serve(t, st, http.MethodGet, "/api/reports/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status: want 200, got %d", rec.Code)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, "attachment; filename=reporte-") || !strings.HasSuffix(disposition, ".json") {
		t.Fatalf("disposition: %s", disposition)
	}

	rec = serve(t, st, http.MethodGet, "/api/reports/export.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status: want 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ticket_number,customer_name") {
		t.Fatalf("csv missing header: %s", body)
	}
	if !strings.Contains(body, "1,Ana,completed,corte,25") {
		t.Fatalf("csv missing row: %s", body)
	}
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeStore{}, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
}
