package models

// DailyReport aggregates the current calendar day's tickets. Only completed
// tickets are judged against their estimate; waiting and in-progress tickets
// count toward TotalTickets but neither bucket.
type DailyReport struct {
	Date            string   `json:"date"`
	TotalTickets    int      `json:"totalTickets"`
	CompletedOnTime int      `json:"completedOnTime"`
	Overdue         int      `json:"overdue"`
	Tickets         []Ticket `json:"tickets"`
}
