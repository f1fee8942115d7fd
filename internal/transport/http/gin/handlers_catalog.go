package httpgin

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/service"
)

// @Summary  List events
// @Tags     events
// @Param    page          query  int  false  "page, 1-based"
// @Param    itemsPerPage  query  int  false  "page size"
// @Success  200  {object}  Collection[EventResponse]
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c, svcs)

		events, err := svcs.Query.ListEvents(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]EventResponse, 0, len(events))
		for i := range events {
			out = append(out, toEventResponse(&events[i]))
		}

		writeJSONWithCache(c, http.StatusOK, Collection[EventResponse]{Member: out}, "public, max-age=15", true)
	}
}

// @Summary  Get event
// @Tags     events
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  EventResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Query.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeJSONWithCache(c, http.StatusOK, toEventResponse(e), "public, max-age=60", true)
	}
}

// @Summary  Ticket counters per schedule slot
// @Tags     events
// @Param    id  path  int  true  "Event ID"
// @Success  200  {object}  AvailabilityResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /events/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		counts, err := svcs.Query.Availability(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 15s
		writeJSONWithCache(c, http.StatusOK, AvailabilityResponse{
			EventID: eventID,
			Slots:   toSlotResponses(counts),
		}, "public, max-age=15", true)
	}
}

// @Summary  List venues
// @Tags     venues
// @Param    page          query  int  false  "page, 1-based"
// @Param    itemsPerPage  query  int  false  "page size"
// @Success  200  {object}  Collection[VenueResponse]
// @Router   /venues [get]
func handleListVenues(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c, svcs)

		venues, err := svcs.Query.ListVenues(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]VenueResponse, 0, len(venues))
		for i := range venues {
			out = append(out, *toVenueResponse(&venues[i]))
		}

		c.JSON(http.StatusOK, Collection[VenueResponse]{Member: out})
	}
}

// @Summary  Get venue
// @Tags     venues
// @Param    id  path  int  true  "Venue ID"
// @Success  200  {object}  VenueResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /venues/{id} [get]
func handleGetVenue(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		v, err := svcs.Query.GetVenue(c.Request.Context(), venueID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toVenueResponse(v))
	}
}

// @Summary  List artists
// @Tags     users
// @Param    page          query  int  false  "page, 1-based"
// @Param    itemsPerPage  query  int  false  "page size"
// @Success  200  {object}  Collection[UserResponse]
// @Router   /artists [get]
func handleListArtists(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c, svcs)

		users, err := svcs.Query.ListArtists(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]UserResponse, 0, len(users))
		for i := range users {
			out = append(out, publicUser(&users[i]))
		}

		c.JSON(http.StatusOK, Collection[UserResponse]{Member: out})
	}
}

// publicUser hides the email of users listed to anonymous clients.
func publicUser(u *domain.User) UserResponse {
	resp := toUserResponse(u)
	resp.Email = ""
	return resp
}

// @Summary  Ticket status choices
// @Tags     tickets
// @Success  200  {object}  Collection[StatusChoice]
// @Router   /ticket-statuses [get]
func handleTicketStatuses() gin.HandlerFunc {
	return func(c *gin.Context) {
		choices := domain.TicketStatusChoices()

		out := make([]StatusChoice, 0, len(choices))
		for status, label := range choices {
			out = append(out, StatusChoice{Value: int(status), Label: label})
		}
		slices.SortFunc(out, func(a, b StatusChoice) int { return a.Value - b.Value })

		writeJSONWithCache(c, http.StatusOK, Collection[StatusChoice]{Member: out}, "public, max-age=3600", true)
	}
}
