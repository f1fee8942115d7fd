package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of schedule and ticket dates.
const DateLayout = "2006-01-02"

type TicketStatus int

const (
	TicketCreate    TicketStatus = -1
	TicketPending   TicketStatus = 0
	TicketPaid      TicketStatus = 1
	TicketCancelled TicketStatus = 2
)

var ticketStatusLabels = map[TicketStatus]string{
	TicketCreate:    "Create",
	TicketPending:   "Pending",
	TicketPaid:      "Paid",
	TicketCancelled: "Cancelled",
}

func (s TicketStatus) String() string {
	if l, ok := ticketStatusLabels[s]; ok {
		return l
	}
	return "Unknown"
}

func (s TicketStatus) Valid() bool {
	_, ok := ticketStatusLabels[s]
	return ok
}

// TicketStatusChoices returns the status -> label mapping used by admin listings.
func TicketStatusChoices() map[TicketStatus]string {
	out := make(map[TicketStatus]string, len(ticketStatusLabels))
	for k, v := range ticketStatusLabels {
		out[k] = v
	}
	return out
}

const (
	RoleUser   = "ROLE_USER"
	RoleAdmin  = "ROLE_ADMIN"
	RoleArtist = "ROLE_ARTIST"
)

type Venue struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Seats    int    `json:"seats"`
	Location string `json:"location"`
}

type Schedule struct {
	ID      int64     `json:"id"`
	EventID int64     `json:"event_id"`
	Date    time.Time `json:"date"`
	Times   []string  `json:"times"`
}

// BillingRef holds the billing provider identifiers of an event. Both are
// empty until the first successful synchronization.
type BillingRef struct {
	EventID string `json:"billing_event_id,omitempty"`
	PriceID string `json:"billing_price_id,omitempty"`
}

func (b BillingRef) IsZero() bool {
	return b.EventID == "" && b.PriceID == ""
}

type Event struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Type      string          `json:"type"`
	Price     decimal.Decimal `json:"price"`
	VenueID   int64           `json:"venue_id"`
	Venue     *Venue          `json:"venue,omitempty"`
	Schedules []Schedule      `json:"schedules"`
	Billing   BillingRef      `json:"billing"`
}

// SlotCount is the number of (date, time) pairs across all schedules.
func (e *Event) SlotCount() int {
	n := 0
	for _, s := range e.Schedules {
		n += len(s.Times)
	}
	return n
}

type Ticket struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	Status        TicketStatus    `json:"status"`
	Price         decimal.Decimal `json:"price"`
	Date          time.Time       `json:"date"`
	Time          string          `json:"time"`
	EventID       int64           `json:"event_id"`
	UserID        *int64          `json:"user_id,omitempty"`
	HoldExpiresAt *time.Time      `json:"hold_expires_at,omitempty"`
}

// TicketCriteria narrows ticket lookups. Zero fields are ignored.
type TicketCriteria struct {
	EventID int64
	Status  *TicketStatus
	UserID  *int64
}

type SlotCounts struct {
	Date      time.Time `json:"date"`
	Time      string    `json:"time"`
	Available int64     `json:"available"`
	Pending   int64     `json:"pending"`
	Paid      int64     `json:"paid"`
	Cancelled int64     `json:"cancelled"`
	Total     int64     `json:"total"`
}

type User struct {
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}
