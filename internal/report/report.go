package report

import (
	"math"
	"time"

	"turnos/ticket-service/internal/models"
)

// ServiceStat aggregates one service label across a day's tickets.
type ServiceStat struct {
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	Completed int     `json:"completed"`
	AvgTime   int     `json:"avgTime"`
	TotalTime float64 `json:"totalTime"`
}

// HourlyBucket counts tickets created in one opening hour.
type HourlyBucket struct {
	Hour      string `json:"hour"`
	Tickets   int    `json:"tickets"`
	Completed int    `json:"completed"`
}

// Export is the downloadable report document. Key casing matches the JSON
// files exported by earlier versions of the reporting panel.
type Export struct {
	Date         string                 `json:"date"`
	Summary      models.DailyReport     `json:"summary"`
	ServiceStats map[string]ServiceStat `json:"serviceStats"`
	HourlyData   []HourlyBucket         `json:"hourlyData"`
	Tickets      []models.Ticket        `json:"tickets"`
}

const (
	openingHour = 8
	hourBuckets = 12
)

// BuildServiceStats groups tickets by service label. Actual durations only
// accrue for completed tickets that passed through in-progress.
func BuildServiceStats(tickets []models.Ticket, label func(models.ServiceType) string) map[string]ServiceStat {
	stats := make(map[string]ServiceStat)
	for _, ticket := range tickets {
		name := label(ticket.Service)
		stat := stats[name]
		stat.Name = name
		stat.Count++
		if ticket.Status == models.StatusCompleted {
			stat.Completed++
			if ticket.StartedAt != nil && ticket.CompletedAt != nil {
				stat.TotalTime += ticket.CompletedAt.Sub(*ticket.StartedAt).Minutes()
			}
		}
		stats[name] = stat
	}
	for name, stat := range stats {
		if stat.Completed > 0 {
			stat.AvgTime = int(math.Round(stat.TotalTime / float64(stat.Completed)))
			stats[name] = stat
		}
	}
	return stats
}

// BuildHourlyData buckets tickets created between 08:00 and 19:59 by hour.
func BuildHourlyData(tickets []models.Ticket, loc *time.Location) []HourlyBucket {
	buckets := make([]HourlyBucket, hourBuckets)
	for i := range buckets {
		buckets[i].Hour = time.Date(0, 1, 1, openingHour+i, 0, 0, 0, time.UTC).Format("15:04")
	}
	for _, ticket := range tickets {
		hour := ticket.CreatedAt.In(loc).Hour()
		idx := hour - openingHour
		if idx < 0 || idx >= hourBuckets {
			continue
		}
		buckets[idx].Tickets++
		if ticket.Status == models.StatusCompleted {
			buckets[idx].Completed++
		}
	}
	return buckets
}

// BuildExport assembles the full export document for a daily report.
func BuildExport(summary models.DailyReport, now time.Time, label func(models.ServiceType) string) Export {
	return Export{
		Date:         now.Format("2006-01-02"),
		Summary:      summary,
		ServiceStats: BuildServiceStats(summary.Tickets, label),
		HourlyData:   BuildHourlyData(summary.Tickets, now.Location()),
		Tickets:      summary.Tickets,
	}
}

// Filename names the downloaded document for a given day.
func Filename(now time.Time) string {
	return "reporte-" + now.Format("2006-01-02") + ".json"
}
