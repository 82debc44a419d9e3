package printer

import (
	"strings"
	"testing"
	"time"

	"turnos/ticket-service/internal/models"
)

func testLabel(service models.ServiceType) string {
	switch service {
	case models.ServiceDigitalPrint:
		return "Impresión Digital"
	case models.ServiceCut:
		return "Corte"
	default:
		return strings.ToUpper(string(service))
	}
}

func sampleTicket() models.Ticket {
	return models.Ticket{
		ID:            "t-1",
		TicketNumber:  7,
		CustomerName:  "Ana López",
		Service:       models.ServiceDigitalPrint,
		Services:      []models.ServiceType{models.ServiceDigitalPrint, models.ServiceCut},
		EstimatedTime: 25,
		Status:        models.StatusWaiting,
		CreatedAt:     time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC),
	}
}

func TestRenderHTMLContract(t *testing.T) {
	r := New(testLabel)
	doc, err := r.RenderHTML(sampleTicket())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(doc)

	for _, want := range []string{
		"007", // zero-padded to three digits
		"ANA LÓPEZ",
		"Impresión Digital + Corte",
		"25 MINUTOS",
		"02/03/2026",
		"14:05",
		"EN ESPERA",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("document missing %q", want)
		}
	}
	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Fatalf("document is not self-contained HTML")
	}
}

func TestRenderHTMLOptionalFields(t *testing.T) {
	r := New(testLabel)
	ticket := sampleTicket()
	ticket.POSTicketNumber = "POS-42"
	ticket.Notes = "sin marco"
	ticket.EstimatedTime = 0
	ticket.Status = models.StatusInProgress

	doc, err := r.RenderHTML(ticket)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(doc)
	for _, want := range []string{"POS-42", "sin marco", "SIN TIEMPO ASIGNADO", "EN PROCESO"} {
		if !strings.Contains(html, want) {
			t.Fatalf("document missing %q", want)
		}
	}
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	r := New(testLabel)
	ticket := sampleTicket()
	ticket.Notes = "<script>alert(1)</script>"

	doc, err := r.RenderHTML(ticket)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(doc), "<script>alert(1)</script>") {
		t.Fatalf("notes not escaped")
	}
}

func TestRenderText(t *testing.T) {
	r := New(testLabel)
	text := string(r.RenderText(sampleTicket()))

	for _, want := range []string{
		"TICKET NUMERO: 007",
		"CLIENTE: ANA LÓPEZ",
		"SERVICIO(S): Impresión Digital + Corte",
		"TIEMPO EST.: 25 MINUTOS",
		"ESTADO: EN ESPERA",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("text ticket missing %q", want)
		}
	}
}

func TestSingleServiceUsesPrimaryLabel(t *testing.T) {
	r := New(testLabel)
	ticket := sampleTicket()
	ticket.Services = []models.ServiceType{models.ServiceCut}
	ticket.Service = models.ServiceCut

	text := string(r.RenderText(ticket))
	if !strings.Contains(text, "SERVICIO(S): Corte") {
		t.Fatalf("single-service label wrong: %s", text)
	}
	if strings.Contains(text, "+") {
		t.Fatalf("single service must not join labels")
	}
}
