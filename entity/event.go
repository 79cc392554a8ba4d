package entity

// Event is the happening a ticket admits to. Date and Time are kept as
// the organizer entered them ("2006-01-02" and "15:04"); formatting for
// confirmation emails happens at dispatch time.
type Event struct {
	EventID  string `json:"event_id" db:"event_id"`
	Name     string `json:"name" db:"name"`
	Date     string `json:"date" db:"date"`
	Time     string `json:"time" db:"time"`
	Location string `json:"location" db:"location"`
	ImageURL string `json:"image_url" db:"image_url"`
}
