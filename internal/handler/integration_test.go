//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/auth"
	"github.com/dinehub/assignment-api/internal/config"
	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/router"
	"github.com/dinehub/assignment-api/internal/ws"
)

// TestIntegrationFlow exercises the full assignment lifecycle against a real
// PostgreSQL database: manual assignment, automatic dispatch, queueing at
// capacity, priority bump, release and queue drain via the monitoring sweep.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:               "8081",
		DatabaseURL:        connStr,
		JWTSecret:          "integration-test-secret",
		MonitorInterval:    time.Hour, // sweeps are triggered explicitly
		SweepTimeout:       10 * time.Second,
		OrphanTimeout:      2 * time.Minute,
		QueueMaxDepth:      100,
		AvgHandlingMinutes: 15,
	}
	queries := database.New(pool)

	hub := ws.NewHub(zerolog.Nop())
	// NOTE: hub.Run() goroutine leaks on test exit — Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	registry := assignment.NewRegistry(hub)
	queue := assignment.NewQueue(cfg.QueueMaxDepth, cfg.AvgHandlingMinutes)
	engine := assignment.NewEngine(
		pool,
		queries,
		func(db database.DBTX) assignment.Store { return database.New(db) },
		registry,
		queue,
		hub,
		zerolog.Nop(),
	)
	monitor := assignment.NewMonitor(engine, queries, registry,
		cfg.MonitorInterval, cfg.SweepTimeout, cfg.OrphanTimeout, zerolog.Nop())

	server := httptest.NewServer(router.New(cfg, queries, engine, monitor, hub))
	defer server.Close()

	// --- 1. Bootstrap the hierarchy: hotel, branch, admin, two waiters ---
	hotelID := createHotel(t, ctx, pool)
	branchID := createBranch(t, ctx, pool, hotelID)
	adminID := createAdmin(t, ctx, pool, hotelID, branchID)
	linkHotelAdmin(t, ctx, pool, hotelID, adminID)
	// max_capacity 1 so two orders saturate the branch.
	waiter1 := createWaiter(t, ctx, pool, hotelID, branchID, "Waiter One", "w1@test.com", 1)
	waiter2 := createWaiter(t, ctx, pool, hotelID, branchID, "Waiter Two", "w2@test.com", 1)

	adminToken := issueToken(t, cfg.JWTSecret, adminID, branchID, hotelID, "HOTEL_ADMIN")
	superToken := issueToken(t, cfg.JWTSecret, adminID, branchID, hotelID, "SUPER_ADMIN")

	// --- 2. Hierarchy is structurally valid ---
	validateResp := httpGetJSON(t, server,
		fmt.Sprintf("/assignment/validate-hierarchy/%s/%s", hotelID, branchID), adminToken)
	if validateResp["valid"] != true {
		t.Fatalf("hierarchy not valid: %+v", validateResp)
	}

	// --- 3. Manual assignment of a paid order ---
	orderA := createPaidOrder(t, ctx, pool, hotelID, branchID)
	assignResp := httpPostJSON(t, server, "/assignment/manual-assign", map[string]interface{}{
		"orderId":  orderA.String(),
		"waiterId": waiter1.String(),
		"reason":   "integration test",
	}, adminToken)
	if assignResp["assignmentMethod"] != "manual" {
		t.Fatalf("manual assign: got %+v", assignResp)
	}

	// --- 4. Available waiters reflects the load ---
	availResp := httpGetJSON(t, server, "/assignment/waiters/available?branchId="+branchID.String(), adminToken)
	waiters := availResp["waiters"].([]interface{})
	if len(waiters) != 1 {
		t.Fatalf("available waiters: got %d, want 1 (waiter1 is at capacity)", len(waiters))
	}

	// --- 5. Automatic assignment picks the remaining waiter ---
	orderB := createPaidOrder(t, ctx, pool, hotelID, branchID)
	outcomeB, err := engine.AutomaticAssign(ctx,
		assignment.OrderID(orderB), assignment.BranchID(branchID), assignment.HotelID(hotelID),
		assignment.AssignOptions{Reason: "integration test"})
	if err != nil {
		t.Fatalf("automatic assign: %v", err)
	}
	if !outcomeB.Assigned || outcomeB.Waiter.ID != waiter2 {
		t.Fatalf("automatic assign: got %+v, want waiter2", outcomeB)
	}

	// --- 6. A third order queues: the branch is saturated ---
	orderC := createPaidOrder(t, ctx, pool, hotelID, branchID)
	outcomeC, err := engine.AutomaticAssign(ctx,
		assignment.OrderID(orderC), assignment.BranchID(branchID), assignment.HotelID(hotelID),
		assignment.AssignOptions{Reason: "integration test"})
	if err != nil {
		t.Fatalf("queueing assign: %v", err)
	}
	if outcomeC.Assigned {
		t.Fatal("third order should have queued, not assigned")
	}
	if outcomeC.QueuePosition != 1 {
		t.Fatalf("queue position: got %d, want 1", outcomeC.QueuePosition)
	}

	queueResp := httpGetJSON(t, server, "/assignment/queue?branchId="+branchID.String(), adminToken)
	summary := queueResp["summary"].(map[string]interface{})
	if summary["depth"] != float64(1) {
		t.Fatalf("queue depth: got %v, want 1", summary["depth"])
	}

	// --- 7. Bump the queued order to high priority ---
	prioResp := httpPutJSON(t, server, "/assignment/queue/"+orderC.String()+"/priority",
		map[string]interface{}{"priority": "high", "reason": "VIP"}, adminToken)
	if prioResp["priority"] != "high" {
		t.Fatalf("priority bump: got %+v", prioResp)
	}

	// --- 8. Completing an order frees the slot and the sweep drains the queue ---
	if err := engine.ReleaseOnTerminal(ctx, assignment.OrderID(orderA), "COMPLETED"); err != nil {
		t.Fatalf("release: %v", err)
	}

	forceResp := httpPostJSON(t, server, "/assignment/system/force-monitoring", nil, superToken)
	if forceResp["skipped"] == true {
		t.Fatal("sweep unexpectedly skipped")
	}

	var assignedStaff uuid.UUID
	err = pool.QueryRow(ctx, `SELECT staff_id FROM orders WHERE id = $1`, orderC).Scan(&assignedStaff)
	if err != nil {
		t.Fatalf("read drained order: %v", err)
	}
	if assignedStaff != waiter1 {
		t.Fatalf("drained order staff: got %s, want %s", assignedStaff, waiter1)
	}

	// --- 9. Stats and health reflect the final state ---
	statsResp := httpGetJSON(t, server, "/assignment/stats?branchId="+branchID.String(), adminToken)
	branches := statsResp["branches"].([]interface{})
	capacity := branches[0].(map[string]interface{})["capacity"].(map[string]interface{})
	if capacity["usedCapacity"] != float64(2) {
		t.Fatalf("usedCapacity: got %v, want 2", capacity["usedCapacity"])
	}

	healthResp := httpGetJSON(t, server, "/assignment/system/health", adminToken)
	if healthResp["status"] != "healthy" {
		t.Fatalf("health: got %v, want healthy", healthResp["status"])
	}

	metricsResp := httpGetJSON(t, server, "/assignment/system/metrics?period=1h", adminToken)
	if metricsResp["totalAssignments"].(float64) < 3 {
		t.Fatalf("totalAssignments: got %v, want >= 3", metricsResp["totalAssignments"])
	}

	t.Logf("Integration test passed: container=%s, hotel=%s, branch=%s, waiters=%s/%s, orders=%s/%s/%s",
		pgContainer.GetContainerID(), hotelID, branchID, waiter1, waiter2, orderA, orderB, orderC)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("assignment_test"),
		tcpostgres.WithUsername("dinehub"),
		tcpostgres.WithPassword("dinehub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createHotel(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO hotels (name, status) VALUES ('Test Hotel', 'ACTIVE') RETURNING id`).Scan(&id)
	if err != nil {
		t.Fatalf("create hotel: %v", err)
	}
	return id
}

func createBranch(t *testing.T, ctx context.Context, pool *pgxpool.Pool, hotelID uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO branches (hotel_id, name, status) VALUES ($1, 'Test Branch', 'ACTIVE') RETURNING id`,
		hotelID).Scan(&id)
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}
	return id
}

func createAdmin(t *testing.T, ctx context.Context, pool *pgxpool.Pool, hotelID, branchID uuid.UUID) uuid.UUID {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO staff (hotel_id, branch_id, name, email, password_hash, role, status, is_available)
		 VALUES ($1, $2, 'Test Admin', 'admin@test.com', $3, 'HOTEL_ADMIN', 'ACTIVE', false)
		 RETURNING id`,
		hotelID, branchID, string(hashed)).Scan(&id)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return id
}

func linkHotelAdmin(t *testing.T, ctx context.Context, pool *pgxpool.Pool, hotelID, adminID uuid.UUID) {
	t.Helper()
	if _, err := pool.Exec(ctx,
		`UPDATE hotels SET admin_id = $1 WHERE id = $2`, adminID, hotelID); err != nil {
		t.Fatalf("link hotel admin: %v", err)
	}
}

func createWaiter(t *testing.T, ctx context.Context, pool *pgxpool.Pool, hotelID, branchID uuid.UUID, name, email string, capacity int) uuid.UUID {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO staff (hotel_id, branch_id, name, email, password_hash, role, status, is_available, max_capacity)
		 VALUES ($1, $2, $3, $4, $5, 'WAITER', 'ACTIVE', true, $6)
		 RETURNING id`,
		hotelID, branchID, name, email, string(hashed), capacity).Scan(&id)
	if err != nil {
		t.Fatalf("create waiter: %v", err)
	}
	return id
}

func createPaidOrder(t *testing.T, ctx context.Context, pool *pgxpool.Pool, hotelID, branchID uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(ctx,
		`INSERT INTO orders (hotel_id, branch_id, status, payment_status, total_amount, paid_at)
		 VALUES ($1, $2, 'CONFIRMED', 'COMPLETED', 120.50, now())
		 RETURNING id`,
		hotelID, branchID).Scan(&id)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return id
}

func issueToken(t *testing.T, secret string, staffID, branchID, hotelID uuid.UUID, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(secret, staffID, branchID, hotelID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// --- HTTP helpers ---

func doJSON(t *testing.T, server *httptest.Server, method, path string, body interface{}, token string) map[string]interface{} {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var envelope map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("%s %s: status %d: %+v", method, path, resp.StatusCode, envelope)
	}
	if data, ok := envelope["data"].(map[string]interface{}); ok {
		return data
	}
	return envelope
}

func httpGetJSON(t *testing.T, server *httptest.Server, path, token string) map[string]interface{} {
	return doJSON(t, server, "GET", path, nil, token)
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body interface{}, token string) map[string]interface{} {
	return doJSON(t, server, "POST", path, body, token)
}

func httpPutJSON(t *testing.T, server *httptest.Server, path string, body interface{}, token string) map[string]interface{} {
	return doJSON(t, server, "PUT", path, body, token)
}
