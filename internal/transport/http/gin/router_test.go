package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository"
	redisrepo "github.com/kirinyoku/tixhub/internal/repository/redis"
	"github.com/kirinyoku/tixhub/internal/service"
	"github.com/kirinyoku/tixhub/internal/service/auth"
	"github.com/kirinyoku/tixhub/internal/service/checkout"
	"github.com/kirinyoku/tixhub/internal/service/ticketing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memUsers struct {
	mu   sync.Mutex
	byID map[int64]*domain.User
}

func (m *memUsers) Create(_ context.Context, u domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return 0, fmt.Errorf("mem.Create: %w", repository.ErrConflict)
		}
	}
	u.ID = int64(len(m.byID) + 1)
	m.byID[u.ID] = &u
	return u.ID, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("mem.GetByID: %w", repository.ErrNotFound)
}

func (m *memUsers) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return nil, fmt.Errorf("mem.GetByLogin: %w", repository.ErrNotFound)
}

type memRefresh struct {
	mu     sync.Mutex
	tokens map[string]int64
}

func (m *memRefresh) Save(_ context.Context, hash string, userID int64, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[hash] = userID
	return nil
}

func (m *memRefresh) Consume(_ context.Context, hash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[hash]
	if !ok {
		return 0, fmt.Errorf("mem.Consume: %w", repository.ErrNotFound)
	}
	delete(m.tokens, hash)
	return id, nil
}

func (m *memRefresh) Revoke(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, hash)
	return nil
}

type fakeLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
	suffixes   []string
}

func (f *fakeLimiter) Allow(_ context.Context, subject string) (redisrepo.Decision, error) {
	f.suffixes = append(f.suffixes, subject)
	if f.err != nil {
		return redisrepo.Decision{}, f.err
	}
	return redisrepo.Decision{Allowed: f.allowed, RetryAfter: f.retryAfter}, nil
}

func (f *fakeLimiter) Limit() int { return 10 }

type testServer struct {
	router *gin.Engine
	users  *memUsers
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	users := &memUsers{byID: map[int64]*domain.User{}}
	svcs := &service.Services{
		Auth: auth.New(users, &memRefresh{tokens: map[string]int64{}}, auth.Config{
			Secret:     []byte("router-test"),
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
			BcryptCost: bcrypt.MinCost,
		}),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testServer{router: NewRouter(svcs, opts, logger), users: users}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) registerAndLogin(t *testing.T, username string) TokenResponse {
	t.Helper()

	w := s.do(t, http.MethodPost, "/users", RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/login", LoginRequest{Username: username, Password: "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var tokens TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.Token)
	require.NotEmpty(t, tokens.RefreshToken)
	return tokens
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodGet, "/healthz", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestLoginAndProfile(t *testing.T) {
	s := newTestServer(t, Options{})
	tokens := s.registerAndLogin(t, "alice")

	w := s.do(t, http.MethodGet, "/profile", nil, tokens.Token)
	require.Equal(t, http.StatusOK, w.Code)

	var profile UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, []string{domain.RoleUser}, profile.Roles)
}

func TestLogin_ByEmail(t *testing.T) {
	s := newTestServer(t, Options{})
	s.registerAndLogin(t, "bob")

	w := s.do(t, http.MethodPost, "/login", LoginRequest{Email: "bob@example.com", Password: "secret123"}, "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t, Options{})
	s.registerAndLogin(t, "carol")

	w := s.do(t, http.MethodPost, "/login", LoginRequest{Username: "carol", Password: "wrong"}, "")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "hydra:Error", resp.Type)
	assert.Equal(t, "Invalid credentials.", resp.Description)
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := &fakeLimiter{allowed: false, retryAfter: 1500 * time.Millisecond}
	s := newTestServer(t, Options{LoginLimiter: limiter})

	w := s.do(t, http.MethodPost, "/login", LoginRequest{Username: "x", Password: "y"}, "")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	require.Len(t, limiter.suffixes, 1)
	assert.Contains(t, limiter.suffixes[0], "login:")
}

func TestLogin_LimiterFailureLetsRequestThrough(t *testing.T) {
	limiter := &fakeLimiter{err: fmt.Errorf("redis down")}
	s := newTestServer(t, Options{LoginLimiter: limiter})

	w := s.do(t, http.MethodPost, "/login", LoginRequest{Username: "nobody", Password: "y"}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	s := newTestServer(t, Options{})
	tokens := s.registerAndLogin(t, "dave")

	w := s.do(t, http.MethodPost, "/token/refresh", RefreshRequest{RefreshToken: tokens.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var rotated TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rotated))
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	w = s.do(t, http.MethodPost, "/token/refresh", RefreshRequest{RefreshToken: tokens.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/logout", LogoutRequest{RefreshToken: rotated.RefreshToken}, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, "/token/refresh", RefreshRequest{RefreshToken: rotated.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister_Violations(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodPost, "/users", map[string]string{
		"username": "ed",
		"email":    "not-an-email",
		"password": "secret123",
	}, "")

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "ConstraintViolationList", resp.Type)

	paths := map[string]string{}
	for _, v := range resp.Violations {
		paths[v.PropertyPath] = v.Message
	}
	assert.Contains(t, paths, "username")
	assert.Contains(t, paths, "email")
	assert.NotContains(t, paths, "password")
}

func TestRegister_Duplicate(t *testing.T) {
	s := newTestServer(t, Options{})
	s.registerAndLogin(t, "frank")

	w := s.do(t, http.MethodPost, "/users", RegisterRequest{
		Username: "frank",
		Email:    "other@example.com",
		Password: "secret123",
	}, "")

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, "username", resp.Violations[0].PropertyPath)
}

func TestBadJSON(t *testing.T) {
	s := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(`{"username":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t, Options{})

	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/profile"},
		{http.MethodGet, "/tickets"},
		{http.MethodPost, "/tickets/confirm"},
		{http.MethodPost, "/events/1/reservations"},
		{http.MethodPost, "/admin/events"},
		{http.MethodDelete, "/admin/events/1"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := s.do(t, tc.method, tc.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = s.do(t, tc.method, tc.path, nil, "garbage")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	s := newTestServer(t, Options{})
	tokens := s.registerAndLogin(t, "gina")

	w := s.do(t, http.MethodPost, "/admin/venues", CreateVenueRequest{Name: "Hall", Seats: 10}, tokens.Token)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminCreateEvent_ValidatesBeforeService(t *testing.T) {
	s := newTestServer(t, Options{})
	s.registerAndLogin(t, "henry")

	u, err := s.users.GetByLogin(context.Background(), "henry")
	require.NoError(t, err)
	u.Roles = append(u.Roles, domain.RoleAdmin)

	w := s.do(t, http.MethodPost, "/login", LoginRequest{Username: "henry", Password: "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tokens TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))

	w = s.do(t, http.MethodPost, "/admin/events", map[string]any{
		"title":    "Show",
		"type":     "concert",
		"price":    "10.50",
		"venue_id": 1,
		"schedules": []map[string]any{
			{"date": "2025-13-40", "times": []string{"20:00"}},
		},
	}, tokens.Token)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, "schedules[0].date", resp.Violations[0].PropertyPath)
}

func TestInvalidPathID(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodGet, "/events/abc", nil, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondErr_Mapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"already generated", fmt.Errorf("op: %w", ticketing.ErrAlreadyGenerated), http.StatusConflict},
		{"invalid event", fmt.Errorf("op: %w", ticketing.ErrInvalidEvent), http.StatusUnprocessableEntity},
		{"billing", &ticketing.BillingError{Op: "create price", Err: fmt.Errorf("boom")}, http.StatusBadGateway},
		{"persistence", &ticketing.PersistenceError{Op: "insert", Err: fmt.Errorf("boom")}, http.StatusInternalServerError},
		{"not enough", fmt.Errorf("op: %w", checkout.NotEnoughTicketsError{Requested: 3, Time: "20:00"}), http.StatusConflict},
		{"hold", fmt.Errorf("op: %w", checkout.ErrHoldNotFound), http.StatusConflict},
		{"quantity", fmt.Errorf("op: %w", checkout.ErrInvalidQuantity), http.StatusUnprocessableEntity},
		{"event not found", fmt.Errorf("op: %w", checkout.ErrEventNotFound), http.StatusNotFound},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { respondErr(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tc.status, w.Code)
			resp := decodeError(t, w)
			assert.NotEmpty(t, resp.Description)
		})
	}
}

func TestTicketStatuses(t *testing.T) {
	s := newTestServer(t, Options{})

	w := s.do(t, http.MethodGet, "/ticket-statuses", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body Collection[StatusChoice]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []StatusChoice{
		{Value: -1, Label: "Create"},
		{Value: 0, Label: "Pending"},
		{Value: 1, Label: "Paid"},
		{Value: 2, Label: "Cancelled"},
	}, body.Member)
}
