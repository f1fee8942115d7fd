package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/tixhub/internal/domain"
	redisrepo "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/service"
	"github.com/kirinyoku/tixhub/internal/service/admin"
)

const idemLockTTL = 60 * time.Second

// @Summary  Create venue
// @Tags     admin
// @Security BearerAuth
// @Param    req body  CreateVenueRequest true "payload"
// @Success  201 {object} VenueResponse
// @Failure  422 {object} ErrorResponse
// @Router   /admin/venues [post]
func handleCreateVenue(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateVenueRequest
		if !bindJSON(c, &req) {
			return
		}

		v := domain.Venue{Name: req.Name, Seats: req.Seats, Location: req.Location}

		id, err := svcs.Admin.CreateVenue(c.Request.Context(), v)
		if err != nil {
			respondErr(c, err)
			return
		}

		v.ID = id
		c.JSON(http.StatusCreated, toVenueResponse(&v))
	}
}

// @Summary  Create event and generate its tickets (idempotent)
// @Tags     admin
// @Security BearerAuth
// @Param    req body  CreateEventRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateEventResponse
// @Failure  409 {object} ErrorResponse "already generated / idem in progress"
// @Failure  422 {object} ErrorResponse
// @Failure  502 {object} ErrorResponse "billing provider failure"
// @Router   /admin/events [post]
func handleCreateEvent(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if !bindJSON(c, &req) {
			return
		}

		schedules, err := parseSchedules(req.Schedules)
		if err != nil {
			writeViolations(c, Violation{PropertyPath: "schedules", Message: "This value is not a valid date."})
			return
		}

		claims, _ := claimsFrom(c)
		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" && claims != nil {
			idemStorageKey = redisrepo.KeyIdemEventCreate(claims.UserID(), idemKey)

			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				replayCreated(c, idemKey, payload)
				return
			}

			locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
					replayCreated(c, idemKey, payload)
					return
				}
				c.Header("Retry-After", "1")
				writeError(c, http.StatusConflict, "A request with this idempotency key is in progress.")
				return
			}
		}

		created, err := svcs.Admin.CreateEvent(ctx, admin.EventInput{
			Title:     req.Title,
			Type:      req.Type,
			Price:     req.Price,
			VenueID:   req.VenueID,
			Schedules: schedules,
		})
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(ctx, idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := CreateEventResponse{
			EventResponse:    toEventResponse(created.Event),
			TicketsGenerated: created.Tickets,
		}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(ctx, idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

func replayCreated(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

// @Summary  Update event and resync billing
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  int  true  "Event ID"
// @Param    req body  UpdateEventRequest true "payload"
// @Success  200 {object} EventResponse
// @Failure  404 {object} ErrorResponse
// @Failure  502 {object} ErrorResponse "billing provider failure"
// @Router   /admin/events/{id} [put]
func handleUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req UpdateEventRequest
		if !bindJSON(c, &req) {
			return
		}

		e, err := svcs.Admin.UpdateEvent(c.Request.Context(), eventID, admin.EventInput{
			Title:   req.Title,
			Type:    req.Type,
			Price:   req.Price,
			VenueID: req.VenueID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toEventResponse(e))
	}
}

// @Summary  Delete event
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /admin/events/{id} [delete]
func handleDeleteEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		if err := svcs.Admin.DeleteEvent(c.Request.Context(), eventID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
