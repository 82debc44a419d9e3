package httpapi

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strconv"
	"strings"
	"time"

	"turnos/ticket-service/internal/calls"
	"turnos/ticket-service/internal/models"
	"turnos/ticket-service/internal/printer"
	"turnos/ticket-service/internal/report"
	"turnos/ticket-service/internal/store"
)

type Handler struct {
	store   store.TicketStore
	printer *printer.Renderer
	calls   *calls.Timer
}

type createTicketRequest struct {
	CustomerName    string   `json:"customer_name"`
	Services        []string `json:"services"`
	CustomTime      int      `json:"custom_time"`
	Notes           string   `json:"notes"`
	POSTicketNumber string   `json:"pos_ticket_number"`
}

type completeServiceRequest struct {
	Service     string `json:"service"`
	CompletedBy string `json:"completed_by"`
}

type updateTimeRequest struct {
	NewTime  *int   `json:"new_time"`
	Password string `json:"password"`
}

type updateSettingsRequest struct {
	Settings models.ServiceSettings `json:"settings"`
	Password string                 `json:"password"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(st store.TicketStore, callTimer *calls.Timer) *Handler {
	return &Handler{
		store:   st,
		printer: printer.New(st.GetServiceLabel),
		calls:   callTimer,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/", h.handleTicketSubpaths)
	mux.HandleFunc("/api/settings/services", h.handleServiceSettings)
	mux.HandleFunc("/api/estimate", h.handleEstimate)
	mux.HandleFunc("/api/queue", h.handleQueue)
	mux.HandleFunc("/api/reports/daily", h.handleDailyReport)
	mux.HandleFunc("/api/reports/export", h.handleExport)
	mux.HandleFunc("/api/reports/export.csv", h.handleExportCSV)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateTicket(w, r)
	case http.MethodGet:
		h.handleListTickets(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "customer_name is required")
		return
	}
	if len(req.Services) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "at least one service is required")
		return
	}
	if req.CustomTime < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "custom_time must not be negative")
		return
	}

	services := make([]models.ServiceType, 0, len(req.Services))
	for _, raw := range req.Services {
		service := models.ServiceType(strings.TrimSpace(raw))
		if service == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "service names must not be empty")
			return
		}
		services = append(services, service)
	}

	ticket, err := h.store.CreateTicket(r.Context(), store.CreateTicketInput{
		CustomerName:    req.CustomerName,
		Services:        services,
		CustomTime:      req.CustomTime,
		Notes:           req.Notes,
		POSTicketNumber: req.POSTicketNumber,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	switch status {
	case "", models.StatusWaiting, models.StatusInProgress, models.StatusCompleted:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown status filter")
		return
	}
	tickets, err := h.store.ListTickets(r.Context(), status)
	if err != nil {
		code, name, msg := mapError(err)
		writeError(w, code, name, msg)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) handleTicketSubpaths(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1:
		h.handleGetTicket(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "print":
		h.handlePrintTicket(w, r, parts[0])
	case len(parts) == 3 && parts[1] == "actions":
		h.handleTicketAction(w, r, parts[0], parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ticket, err := h.store.GetTicket(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handlePrintTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ticket, err := h.store.GetTicket(r.Context(), ticketID)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(h.printer.RenderText(ticket))
		return
	}
	doc, err := h.printer.RenderHTML(ticket)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(doc)
}

func (h *Handler) handleTicketAction(w http.ResponseWriter, r *http.Request, ticketID, action string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "start":
		h.handleStartTicket(w, r, ticketID)
	case "complete":
		h.handleCompleteTicket(w, r, ticketID)
	case "complete-service":
		h.handleCompleteService(w, r, ticketID)
	case "call":
		h.handleCallCustomer(w, r, ticketID)
	case "clear-calling":
		h.handleClearCalling(w, r, ticketID)
	case "time":
		h.handleUpdateTime(w, r, ticketID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleStartTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	ticket, err := h.store.StartTicket(r.Context(), store.TicketActionInput{
		TicketID:   ticketID,
		OccurredAt: time.Now(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	// Starting clears the calling flag, so the timeout no longer applies.
	if h.calls != nil {
		h.calls.Cancel()
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleCompleteTicket(w http.ResponseWriter, r *http.Request, ticketID string) {
	ticket, err := h.store.CompleteTicket(r.Context(), store.TicketActionInput{
		TicketID:   ticketID,
		OccurredAt: time.Now(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleCompleteService(w http.ResponseWriter, r *http.Request, ticketID string) {
	var req completeServiceRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	req.Service = strings.TrimSpace(req.Service)
	req.CompletedBy = strings.TrimSpace(req.CompletedBy)
	if req.Service == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "service is required")
		return
	}

	ticket, err := h.store.CompleteService(r.Context(), store.CompleteServiceInput{
		TicketID:    ticketID,
		Service:     models.ServiceType(req.Service),
		CompletedBy: req.CompletedBy,
		OccurredAt:  time.Now(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleCallCustomer(w http.ResponseWriter, r *http.Request, ticketID string) {
	ticket, err := h.store.CallCustomer(r.Context(), store.TicketActionInput{
		TicketID:   ticketID,
		OccurredAt: time.Now(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if h.calls != nil {
		h.calls.Arm(ticket.ID)
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleClearCalling(w http.ResponseWriter, r *http.Request, ticketID string) {
	ticket, err := h.store.ClearCalling(r.Context(), store.TicketActionInput{
		TicketID:   ticketID,
		OccurredAt: time.Now(),
	})
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	if h.calls != nil {
		h.calls.Cancel()
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleUpdateTime(w http.ResponseWriter, r *http.Request, ticketID string) {
	var req updateTimeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if req.NewTime == nil || *req.NewTime < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "new_time must be a non-negative integer")
		return
	}

	ticket, authorized, err := h.store.UpdateEstimatedTime(r.Context(), store.UpdateTimeInput{
		TicketID: ticketID,
		NewTime:  *req.NewTime,
		Password: req.Password,
	})
	if !authorized {
		writeError(w, http.StatusForbidden, "invalid_password", "incorrect manager password")
		return
	}
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) handleServiceSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := h.store.Settings(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req updateSettingsRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		if len(req.Settings) == 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "settings must not be empty")
			return
		}
		authorized, err := h.store.UpdateServiceSettings(r.Context(), store.UpdateSettingsInput{
			Settings: req.Settings,
			Password: req.Password,
		})
		if !authorized {
			writeError(w, http.StatusForbidden, "invalid_password", "incorrect manager password")
			return
		}
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		settings, err := h.store.Settings(r.Context())
		if err != nil {
			status, code, msg := mapError(err)
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("services"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "services is required")
		return
	}
	var services []models.ServiceType
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		services = append(services, models.ServiceType(part))
	}
	if len(services) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "services is required")
		return
	}
	total := h.store.CalculateTotalTime(services)
	writeJSON(w, http.StatusOK, map[string]int{"estimated_minutes": total})
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snapshot, err := h.store.QueueSnapshot(r.Context(), time.Now())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	daily, err := h.store.GenerateDailyReport(r.Context(), time.Now())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	now := time.Now()
	daily, err := h.store.GenerateDailyReport(r.Context(), now)
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}
	doc := report.BuildExport(daily, now, h.store.GetServiceLabel)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+report.Filename(now))
	w.WriteHeader(http.StatusOK)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(doc)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	daily, err := h.store.GenerateDailyReport(r.Context(), time.Now())
	if err != nil {
		status, code, msg := mapError(err)
		writeError(w, status, code, msg)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=report.csv")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"ticket_number", "customer_name", "status", "services", "estimated_minutes", "created_at", "started_at", "completed_at"})
	for _, ticket := range daily.Tickets {
		services := make([]string, 0, len(ticket.Services))
		for _, service := range ticket.Services {
			services = append(services, string(service))
		}
		_ = writer.Write([]string{
			strconv.Itoa(ticket.TicketNumber),
			ticket.CustomerName,
			ticket.Status,
			strings.Join(services, "+"),
			strconv.Itoa(ticket.EstimatedTime),
			ticket.CreatedAt.Format(time.RFC3339),
			formatOptionalTime(ticket.StartedAt),
			formatOptionalTime(ticket.CompletedAt),
		})
	}
	writer.Flush()
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrUnknownService):
		return http.StatusBadRequest, "unknown_service", "service is not configured"
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request", "invalid request"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
