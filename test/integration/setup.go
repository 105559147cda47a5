package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"levelup-loyalty/internal/config"
	"levelup-loyalty/internal/database"
	"levelup-loyalty/internal/handler"
	"levelup-loyalty/internal/idgen"
	"levelup-loyalty/internal/metrics"
	"levelup-loyalty/internal/router"
	"levelup-loyalty/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAPIKey = "test-api-key"

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and applies the migrations.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dbConfig := config.DatabaseConfig{
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 5 * time.Minute,
	}
	pool, err := database.NewPoolFromURL(ctx, connStr, dbConfig, zerolog.Nop())
	require.NoError(t, err, "failed to create connection pool")

	require.NoError(t, database.Migrate(ctx, pool, "up", zerolog.Nop()))

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB removes all rows from the loyalty tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE TABLE
		levelup_points, purchase_history, referrals, cart_items, discounts, members
		RESTART IDENTITY`)
	require.NoError(t, err, "failed to truncate tables")
}

// App is the wired service graph behind a test server.
type App struct {
	Hub      *service.Hub
	Ledger   service.LedgerService
	Cart     service.CartService
	Checkout service.CheckoutService
	Referral service.ReferralService
	Discount service.DiscountService
	Member   service.MemberService
	Registry *prometheus.Registry
	Handler  http.Handler
}

// NewApp wires repositories, services and the router on the test database.
func NewApp(t *testing.T, testDB *TestDB, now func() time.Time) *App {
	t.Helper()

	logger := zerolog.Nop()
	reg := prometheus.NewRegistry()
	hub := service.NewHub()
	t.Cleanup(hub.Close)

	deps := service.Deps{
		Repos: service.NewRepositories(testDB.Pool, logger),
		Hub:   hub,
		IDs:   idgen.New(),
		Loyalty: config.LoyaltyConfig{
			MemberEmailDomain:     "duoc.cl",
			MemberDiscountPercent: 20,
			LeaderboardSize:       10,
		},
		Metrics: metrics.NewLoyalty(reg),
		Clock:   now,
		Logger:  logger,
	}

	app := &App{
		Hub:      hub,
		Ledger:   service.NewLedgerService(deps),
		Cart:     service.NewCartService(deps),
		Checkout: service.NewCheckoutService(deps),
		Referral: service.NewReferralService(deps),
		Discount: service.NewDiscountService(deps, nil),
		Member:   service.NewMemberService(deps),
		Registry: reg,
	}

	app.Handler = router.New(router.Handlers{
		Loyalty:  handler.NewLoyaltyHandler(app.Ledger, logger),
		Cart:     handler.NewCartHandler(app.Cart, logger),
		Checkout: handler.NewCheckoutHandler(app.Checkout, logger),
		Referral: handler.NewReferralHandler(app.Referral, logger),
		Discount: handler.NewDiscountHandler(app.Discount, logger),
		Member:   handler.NewMemberHandler(app.Member, logger),
	}, router.Options{
		APIKey:   testAPIKey,
		Gatherer: reg,
		Metrics:  metrics.NewHTTP(reg),
		Logger:   logger,
	})

	return app
}

// Do sends an authenticated request and decodes a JSON response into out when out is not nil.
func (a *App) Do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-API-Key", testAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)

	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
	}
	return w
}
