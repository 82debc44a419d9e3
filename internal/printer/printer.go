package printer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"turnos/ticket-service/internal/models"
)

// Renderer produces the printable ticket artifact. The zero-padded number,
// the Spanish status labels, and the field layout are part of the contract
// with tickets already printed at the counter.
type Renderer struct {
	labels func(models.ServiceType) string
	tmpl   *template.Template
}

func New(labels func(models.ServiceType) string) *Renderer {
	return &Renderer{
		labels: labels,
		tmpl:   template.Must(template.New("ticket").Parse(ticketHTML)),
	}
}

type ticketView struct {
	Number        string
	CustomerName  string
	ServicesText  string
	EstimatedText string
	DateText      string
	TimeText      string
	StatusText    string
	POS           string
	Notes         string
}

func (r *Renderer) view(ticket models.Ticket) ticketView {
	estimated := "SIN TIEMPO ASIGNADO"
	if ticket.EstimatedTime > 0 {
		estimated = fmt.Sprintf("%d MINUTOS", ticket.EstimatedTime)
	}
	return ticketView{
		Number:        fmt.Sprintf("%03d", ticket.TicketNumber),
		CustomerName:  strings.ToUpper(ticket.CustomerName),
		ServicesText:  r.servicesText(ticket),
		EstimatedText: estimated,
		DateText:      ticket.CreatedAt.Format("02/01/2006"),
		TimeText:      ticket.CreatedAt.Format("15:04"),
		StatusText:    models.StatusLabel(ticket.Status),
		POS:           ticket.POSTicketNumber,
		Notes:         ticket.Notes,
	}
}

func (r *Renderer) servicesText(ticket models.Ticket) string {
	if len(ticket.Services) > 1 {
		parts := make([]string, 0, len(ticket.Services))
		for _, service := range ticket.Services {
			parts = append(parts, r.labels(service))
		}
		return strings.Join(parts, " + ")
	}
	return r.labels(ticket.Service)
}

// RenderHTML returns a self-contained document sized for an 80mm receipt
// printer.
func (r *Renderer) RenderHTML(ticket models.Ticket) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, r.view(ticket)); err != nil {
		return nil, fmt.Errorf("render ticket: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderText is the plain-text fallback for printers without an HTML path.
func (r *Renderer) RenderText(ticket models.Ticket) []byte {
	v := r.view(ticket)
	var buf bytes.Buffer
	line := strings.Repeat("=", 32)
	fmt.Fprintln(&buf, line)
	fmt.Fprintln(&buf, "      SISTEMA DE TURNOS")
	fmt.Fprintln(&buf, "   Servicios Profesionales")
	fmt.Fprintln(&buf, line)
	fmt.Fprintf(&buf, "TICKET NUMERO: %s\n", v.Number)
	fmt.Fprintf(&buf, "CLIENTE: %s\n", v.CustomerName)
	if v.POS != "" {
		fmt.Fprintf(&buf, "POS: %s\n", v.POS)
	}
	fmt.Fprintf(&buf, "SERVICIO(S): %s\n", v.ServicesText)
	fmt.Fprintf(&buf, "TIEMPO EST.: %s\n", v.EstimatedText)
	fmt.Fprintf(&buf, "FECHA: %s  HORA: %s\n", v.DateText, v.TimeText)
	if v.Notes != "" {
		fmt.Fprintf(&buf, "NOTAS: %s\n", v.Notes)
	}
	fmt.Fprintln(&buf, line)
	fmt.Fprintf(&buf, "ESTADO: %s\n", v.StatusText)
	fmt.Fprintln(&buf, "Por favor conserve este ticket")
	fmt.Fprintln(&buf, "hasta ser atendido")
	fmt.Fprintln(&buf, "GRACIAS POR SU PREFERENCIA")
	fmt.Fprintln(&buf, line)
	return buf.Bytes()
}

const ticketHTML = `<!DOCTYPE html>
<html>
<head>
<title>Ticket #{{.Number}}</title>
<meta charset="utf-8">
<style>
body { font-family: 'Courier New', monospace; font-size: 12px; line-height: 1.4; margin: 0; padding: 20px; width: 300px; background: white; color: black; }
.ticket { border: 2px dashed #333; padding: 15px; text-align: center; }
.header { border-bottom: 2px solid #333; padding-bottom: 10px; margin-bottom: 15px; }
.ticket-number { font-size: 32px; font-weight: bold; border: 2px solid #333; padding: 10px; margin: 10px 0; display: inline-block; }
.info-section { border-top: 1px solid #666; border-bottom: 1px solid #666; padding: 10px 0; margin: 10px 0; }
.info-row { display: flex; justify-content: space-between; margin: 5px 0; }
.label { font-size: 10px; color: #666; }
.value { font-weight: bold; text-align: right; }
.footer { border-top: 2px solid #333; padding-top: 10px; margin-top: 15px; font-size: 10px; color: #666; }
@media print { body { margin: 0; padding: 10px; } .ticket { border: 2px dashed #000; } }
</style>
</head>
<body>
<div class="ticket">
<div class="header">
<h1 style="margin: 0; font-size: 16px;">SISTEMA DE TURNOS</h1>
<p style="margin: 5px 0 0 0; font-size: 10px;">Servicios Profesionales</p>
</div>
<div>
<p class="label">TICKET N&Uacute;MERO</p>
<div class="ticket-number">{{.Number}}</div>
</div>
<div class="info-section">
<div class="info-row"><span class="label">CLIENTE:</span><span class="value">{{.CustomerName}}</span></div>
{{if .POS}}<div class="info-row"><span class="label">POS:</span><span class="value">{{.POS}}</span></div>{{end}}
<div class="info-row"><span class="label">SERVICIO(S):</span><span class="value">{{.ServicesText}}</span></div>
<div class="info-row"><span class="label">TIEMPO EST.:</span><span class="value">{{.EstimatedText}}</span></div>
<div class="info-row"><span class="label">FECHA:</span><span class="value">{{.DateText}}</span></div>
<div class="info-row"><span class="label">HORA:</span><span class="value">{{.TimeText}}</span></div>
{{if .Notes}}<div style="border-top: 1px solid #ccc; padding-top: 8px; margin-top: 8px;">
<div class="info-row"><span class="label">NOTAS:</span></div>
<p style="font-size: 10px; text-align: left; margin: 5px 0; word-wrap: break-word;">{{.Notes}}</p>
</div>{{end}}
</div>
<div>
<p class="label">ESTADO ACTUAL</p>
<p style="font-weight: bold; font-size: 14px; margin: 10px 0;">{{.StatusText}}</p>
</div>
<div style="border-top: 1px solid #666; padding-top: 10px; margin-top: 10px;">
<p style="font-size: 10px; color: #666; margin: 5px 0;">Por favor conserve este ticket hasta ser atendido</p>
<p style="font-size: 10px; color: #666; margin: 5px 0;">Los tiempos son estimados y pueden variar</p>
<p style="font-weight: bold; font-size: 11px; margin: 10px 0;">&iexcl;GRACIAS POR SU PREFERENCIA!</p>
</div>
<div class="footer">
<p>Sistema de Gesti&oacute;n de Turnos v1.0</p>
</div>
</div>
</body>
</html>
`
