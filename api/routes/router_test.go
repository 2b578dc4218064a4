package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coffeeworth/coffeeworth-backend/internal/creators"
	"github.com/coffeeworth/coffeeworth-backend/internal/payments"
	"github.com/coffeeworth/coffeeworth-backend/internal/payouts"
	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	pkgauth "github.com/coffeeworth/coffeeworth-backend/pkg/auth"
	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
	"github.com/coffeeworth/coffeeworth-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSupportService struct{}

func (stubSupportService) Create(context.Context, supports.CreateSupportInput) (*supports.SupportDTO, error) {
	return &supports.SupportDTO{ID: uuid.New(), Status: enums.SupportStatusPending}, nil
}

func (stubSupportService) GetByID(context.Context, uuid.UUID) (*supports.SupportDTO, error) {
	return &supports.SupportDTO{ID: uuid.New(), Status: enums.SupportStatusCompleted}, nil
}

func (stubSupportService) ListForCreator(context.Context, uuid.UUID, pagination.Params) (*supports.SupportPage, error) {
	return &supports.SupportPage{}, nil
}

func (stubSupportService) StatsForCreator(context.Context, uuid.UUID, time.Time) (*supports.StatsDTO, error) {
	return &supports.StatsDTO{}, nil
}

type stubPaymentService struct{}

func (stubPaymentService) Confirm(context.Context, payments.ConfirmInput) (*payments.ConfirmResult, error) {
	return &payments.ConfirmResult{SupportID: uuid.New(), CreatorUsername: "kimwriter"}, nil
}

func (stubPaymentService) Refund(context.Context, uuid.UUID, string) (*supports.SupportDTO, error) {
	return &supports.SupportDTO{ID: uuid.New(), Status: enums.SupportStatusRefunded}, nil
}

type stubCreatorService struct{}

func (stubCreatorService) GetPublicProfile(context.Context, string) (*creators.ProfileDTO, error) {
	return &creators.ProfileDTO{ID: uuid.New(), Username: "coffeefan"}, nil
}

func (stubCreatorService) GetMe(context.Context, uuid.UUID) (*creators.MeDTO, error) {
	return &creators.MeDTO{ID: uuid.New()}, nil
}

func (stubCreatorService) UpdateMe(context.Context, uuid.UUID, creators.UpdateProfileInput) (*creators.MeDTO, error) {
	return &creators.MeDTO{ID: uuid.New()}, nil
}

type stubPayoutService struct{}

func (stubPayoutService) GetBalance(context.Context, uuid.UUID) (*payouts.BalanceDTO, error) {
	return &payouts.BalanceDTO{}, nil
}

func (stubPayoutService) Request(context.Context, uuid.UUID) (*payouts.PayoutDTO, error) {
	return &payouts.PayoutDTO{ID: uuid.New()}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "coffeeworth-test",
			ExpirationMinutes: 60,
		},
		RateLimit: config.RateLimitConfig{
			SupportWindow:  time.Minute,
			SupportIPLimit: 10,
			ConfirmWindow:  time.Minute,
			ConfirmIPLimit: 20,
		},
		Idempotency: config.IdempotencyConfig{
			SupportTTL: 24 * time.Hour,
			ConfirmTTL: 168 * time.Hour,
			PayoutTTL:  168 * time.Hour,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "router-test", Level: zerolog.ErrorLevel, Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, nil, stubSupportService{}, stubPaymentService{}, stubCreatorService{}, stubPayoutService{})
}

func TestRouterPublicSurface(t *testing.T) {
	router := newTestRouter(testConfig())

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health/live", "", http.StatusOK},
		{http.MethodGet, "/api/public/ping", "", http.StatusOK},
		{http.MethodGet, "/api/v1/creators/coffeefan", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/v1/supports", `{"creator_username":"kimwriter","coffee_count":3}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/payments/confirm", `{"payment_key":"tp_x","order_id":"ORD_1_x","amount":9000}`, http.StatusOK},
	}

	for _, tc := range cases {
		var req *http.Request
		if tc.body == "" {
			req = httptest.NewRequest(tc.method, tc.path, nil)
		} else {
			req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d: %s", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterDashboardRequiresAuth(t *testing.T) {
	router := newTestRouter(testConfig())

	paths := []string{"/api/v1/me", "/api/v1/me/stats", "/api/v1/me/supports", "/api/v1/me/payouts"}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s: expected 401 got %d", path, rec.Code)
		}
	}
}

func TestRouterDashboardWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}
