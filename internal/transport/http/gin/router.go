package httpgin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/tixhub/internal/domain"
	redisrepo "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/service"
)

// Options carries the optional collaborators of the router. Nil fields
// disable the matching feature.
type Options struct {
	Idempotency    *redisrepo.IdempotencyStore
	LoginLimiter   RateLimiter
	AllowedOrigins []string
}

func NewRouter(
	svcs *service.Services,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	registerValidator()

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), MetricsMiddleware(), CORS(opts.AllowedOrigins...))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authn := Authenticate(svcs.Auth)

	// Auth
	r.POST("/login", RateLimit(opts.LoginLimiter, "login", logger), handleLogin(svcs))
	r.POST("/token/refresh", handleRefresh(svcs))
	r.POST("/logout", handleLogout(svcs))
	r.POST("/users", handleRegister(svcs))
	r.GET("/profile", authn, handleProfile(svcs))

	// Public catalog
	r.GET("/artists", handleListArtists(svcs))
	r.GET("/venues", handleListVenues(svcs))
	r.GET("/venues/:id", handleGetVenue(svcs))
	r.GET("/events", handleListEvents(svcs))
	r.GET("/events/:id", handleGetEvent(svcs))
	r.GET("/events/:id/availability", handleGetAvailability(svcs))
	r.GET("/ticket-statuses", handleTicketStatuses())

	// Checkout
	r.POST("/events/:id/reservations", authn, handleReserve(svcs))
	r.GET("/tickets", authn, handleListMyTickets(svcs))
	r.POST("/tickets/confirm", authn, handleConfirmTickets(svcs))
	r.POST("/tickets/cancel", authn, handleCancelTickets(svcs))

	// Admin-API
	admin := r.Group("/admin", authn, RequireRole(domain.RoleAdmin))
	{
		admin.POST("/venues", handleCreateVenue(svcs))
		admin.POST("/events", handleCreateEvent(svcs, opts.Idempotency))
		admin.PUT("/events/:id", handleUpdateEvent(svcs))
		admin.DELETE("/events/:id", handleDeleteEvent(svcs))
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		writeError(c, http.StatusBadRequest, "Invalid identifier "+name+".")
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// pagination reads page (1-based) and itemsPerPage.
func pagination(c *gin.Context, svcs *service.Services) (limit, offset int) {
	limit = svcs.Query.Page(parseIntDefault(c.Query("itemsPerPage"), 0))
	page := max(parseIntDefault(c.Query("page"), 1), 1)
	return limit, (page - 1) * limit
}
