package httpgin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/service"
)

// @Summary  Hold tickets of one schedule slot
// @Tags     checkout
// @Security BearerAuth
// @Param    id  path  int  true  "Event ID"
// @Param    req body  ReserveRequest true "payload"
// @Success  201 {object} Collection[TicketResponse]
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "not enough tickets"
// @Router   /events/{id}/reservations [post]
func handleReserve(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req ReserveRequest
		if !bindJSON(c, &req) {
			return
		}

		date, err := time.Parse(domain.DateLayout, req.Date)
		if err != nil {
			writeViolations(c, Violation{PropertyPath: "date", Message: "This value is not a valid date."})
			return
		}

		claims, _ := claimsFrom(c)

		tickets, err := svcs.Checkout.Reserve(c.Request.Context(), claims.UserID(), eventID, date, req.Time, req.Quantity)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, Collection[TicketResponse]{Member: toTicketResponses(tickets)})
	}
}

// @Summary  Confirm held tickets
// @Tags     checkout
// @Security BearerAuth
// @Param    req body  TicketReferencesRequest true "payload"
// @Success  200 {object} CountResponse
// @Failure  409 {object} ErrorResponse "hold missing or expired"
// @Router   /tickets/confirm [post]
func handleConfirmTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TicketReferencesRequest
		if !bindJSON(c, &req) {
			return
		}

		claims, _ := claimsFrom(c)

		n, err := svcs.Checkout.Confirm(c.Request.Context(), claims.UserID(), req.References)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, CountResponse{Count: n})
	}
}

// @Summary  Cancel own tickets
// @Tags     checkout
// @Security BearerAuth
// @Param    req body  TicketReferencesRequest true "payload"
// @Success  200 {object} CountResponse
// @Failure  409 {object} ErrorResponse "nothing to cancel"
// @Router   /tickets/cancel [post]
func handleCancelTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TicketReferencesRequest
		if !bindJSON(c, &req) {
			return
		}

		claims, _ := claimsFrom(c)

		n, err := svcs.Checkout.Cancel(c.Request.Context(), claims.UserID(), req.References)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, CountResponse{Count: n})
	}
}

// @Summary  List own tickets
// @Tags     checkout
// @Security BearerAuth
// @Param    page          query  int  false  "page, 1-based"
// @Param    itemsPerPage  query  int  false  "page size"
// @Success  200 {object} Collection[TicketResponse]
// @Router   /tickets [get]
func handleListMyTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := claimsFrom(c)

		limit := parseIntDefault(c.Query("itemsPerPage"), 30)
		page := max(parseIntDefault(c.Query("page"), 1), 1)

		tickets, err := svcs.Checkout.ListMine(c.Request.Context(), claims.UserID(), limit, (page-1)*limit)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, Collection[TicketResponse]{Member: toTicketResponses(tickets)})
	}
}
