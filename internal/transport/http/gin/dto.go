package httpgin

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirinyoku/tixhub/internal/domain"
)

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type CreateVenueRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Seats    int    `json:"seats" binding:"required,gt=0"`
	Location string `json:"location" binding:"max=255"`
}

type ScheduleInput struct {
	Date  string   `json:"date" binding:"required,datetime=2006-01-02"`
	Times []string `json:"times" binding:"required,min=1,dive,datetime=15:04"`
}

type CreateEventRequest struct {
	Title     string          `json:"title" binding:"required,max=255"`
	Type      string          `json:"type" binding:"required,max=64"`
	Price     decimal.Decimal `json:"price"`
	VenueID   int64           `json:"venue_id" binding:"required,gt=0"`
	Schedules []ScheduleInput `json:"schedules" binding:"dive"`
}

type UpdateEventRequest struct {
	Title   string          `json:"title" binding:"required,max=255"`
	Type    string          `json:"type" binding:"required,max=64"`
	Price   decimal.Decimal `json:"price"`
	VenueID int64           `json:"venue_id" binding:"required,gt=0"`
}

type ReserveRequest struct {
	Date     string `json:"date" binding:"required,datetime=2006-01-02"`
	Time     string `json:"time" binding:"required,datetime=15:04"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type TicketReferencesRequest struct {
	References []string `json:"references" binding:"required,min=1,dive,required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type VenueResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Seats    int    `json:"seats"`
	Location string `json:"location"`
}

type ScheduleResponse struct {
	ID    int64    `json:"id"`
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

type EventResponse struct {
	ID             int64              `json:"id"`
	Title          string             `json:"title"`
	Type           string             `json:"type"`
	Price          decimal.Decimal    `json:"price"`
	Venue          *VenueResponse     `json:"venue,omitempty"`
	Schedules      []ScheduleResponse `json:"schedules"`
	BillingEventID string             `json:"billing_event_id,omitempty"`
	BillingPriceID string             `json:"billing_price_id,omitempty"`
}

type CreateEventResponse struct {
	EventResponse
	TicketsGenerated int `json:"tickets_generated"`
}

type StatusChoice struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type TicketResponse struct {
	Reference     string          `json:"reference"`
	Status        int             `json:"status"`
	StatusLabel   string          `json:"status_label"`
	Price         decimal.Decimal `json:"price"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	EventID       int64           `json:"event_id,omitempty"`
	HoldExpiresAt *time.Time      `json:"hold_expires_at,omitempty"`
}

type SlotResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available int64  `json:"available"`
	Pending   int64  `json:"pending"`
	Paid      int64  `json:"paid"`
	Cancelled int64  `json:"cancelled"`
	Total     int64  `json:"total"`
}

type AvailabilityResponse struct {
	EventID int64          `json:"event_id"`
	Slots   []SlotResponse `json:"slots"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// Collection wraps list responses.
type Collection[T any] struct {
	Member []T `json:"hydra:member"`
}

func toUserResponse(u *domain.User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Roles: roles}
}

func toVenueResponse(v *domain.Venue) *VenueResponse {
	if v == nil {
		return nil
	}
	return &VenueResponse{ID: v.ID, Name: v.Name, Seats: v.Seats, Location: v.Location}
}

func toEventResponse(e *domain.Event) EventResponse {
	schedules := make([]ScheduleResponse, 0, len(e.Schedules))
	for _, s := range e.Schedules {
		schedules = append(schedules, ScheduleResponse{
			ID:    s.ID,
			Date:  s.Date.Format(domain.DateLayout),
			Times: s.Times,
		})
	}

	return EventResponse{
		ID:             e.ID,
		Title:          e.Title,
		Type:           e.Type,
		Price:          e.Price,
		Venue:          toVenueResponse(e.Venue),
		Schedules:      schedules,
		BillingEventID: e.Billing.EventID,
		BillingPriceID: e.Billing.PriceID,
	}
}

func toTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketResponse{
			Reference:     t.Reference,
			Status:        int(t.Status),
			StatusLabel:   t.Status.String(),
			Price:         t.Price,
			Date:          t.Date.Format(domain.DateLayout),
			Time:          t.Time,
			EventID:       t.EventID,
			HoldExpiresAt: t.HoldExpiresAt,
		})
	}
	return out
}

func toSlotResponses(counts []domain.SlotCounts) []SlotResponse {
	out := make([]SlotResponse, 0, len(counts))
	for _, c := range counts {
		out = append(out, SlotResponse{
			Date:      c.Date.Format(domain.DateLayout),
			Time:      c.Time,
			Available: c.Available,
			Pending:   c.Pending,
			Paid:      c.Paid,
			Cancelled: c.Cancelled,
			Total:     c.Total,
		})
	}
	return out
}

func parseSchedules(in []ScheduleInput) ([]domain.Schedule, error) {
	out := make([]domain.Schedule, 0, len(in))
	for _, s := range in {
		d, err := time.Parse(domain.DateLayout, s.Date)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Schedule{Date: d, Times: s.Times})
	}
	return out, nil
}
