package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dinehub/assignment-api/internal/auth"
	"github.com/dinehub/assignment-api/internal/database"
	"github.com/dinehub/assignment-api/internal/enum"
)

const testJWTSecret = "test-secret-for-handlers"

// --- Mock store ---

// mockStore implements assignment.Store plus the handler-specific read
// methods (WaiterStore, SystemStore). Unset functions return empty values or
// pgx.ErrNoRows, matching what the real queries do for missing rows.
type mockStore struct {
	getBranchHierarchyFn   func(ctx context.Context, branchID uuid.UUID) (database.BranchHierarchy, error)
	lockBranchFn           func(ctx context.Context, branchID uuid.UUID) error
	listActiveBranchesFn   func(ctx context.Context) ([]database.Branch, error)
	getOrderFn             func(ctx context.Context, id uuid.UUID) (database.Order, error)
	assignOrderFn          func(ctx context.Context, arg database.AssignOrderParams) (database.Order, error)
	updateOrderStatusFn    func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	insertHistoryFn        func(ctx context.Context, arg database.InsertAssignmentHistoryParams) (database.AssignmentHistory, error)
	listOrphanOrdersFn     func(ctx context.Context, cutoff time.Time) ([]database.Order, error)
	getStaffFn             func(ctx context.Context, id uuid.UUID) (database.Staff, error)
	listAvailableWaitersFn func(ctx context.Context, branchID uuid.UUID) ([]database.Staff, error)
	incrementWaiterLoadFn  func(ctx context.Context, id uuid.UUID) (database.Staff, error)
	decrementWaiterLoadFn  func(ctx context.Context, id uuid.UUID) (database.Staff, error)
	setStaffAvailabilityFn func(ctx context.Context, arg database.SetStaffAvailabilityParams) (database.Staff, error)
	getBranchUtilizationFn func(ctx context.Context, branchID uuid.UUID) (database.BranchUtilization, error)
	getRoundRobinCursorFn  func(ctx context.Context, branchID uuid.UUID) (int32, error)
	setRoundRobinCursorFn  func(ctx context.Context, arg database.SetRoundRobinCursorParams) error
	enqueueOrderFn         func(ctx context.Context, arg database.EnqueueOrderParams) (database.QueueEntry, error)
	getQueueEntryByOrderFn func(ctx context.Context, orderID uuid.UUID) (database.QueueEntry, error)
	dequeueNextFn          func(ctx context.Context, branchID uuid.UUID) (database.QueueEntry, error)
	updateQueuePriorityFn  func(ctx context.Context, arg database.UpdateQueuePriorityParams) (database.QueueEntry, error)
	removeQueueEntryFn     func(ctx context.Context, orderID uuid.UUID) (database.QueueEntry, error)
	countQueueByBranchFn   func(ctx context.Context, branchID uuid.UUID) (int64, error)
	queuePositionFn        func(ctx context.Context, entryID uuid.UUID) (int, error)
	listQueueByBranchFn    func(ctx context.Context, branchID uuid.UUID) ([]database.QueueEntry, error)
	listQueuedBranchesFn   func(ctx context.Context) ([]uuid.UUID, error)

	getWaiterPerformanceFn  func(ctx context.Context, staffID uuid.UUID) (database.WaiterPerformance, error)
	listBranchesByHotelFn   func(ctx context.Context, hotelID uuid.UUID) ([]database.Branch, error)
	getAssignmentMetricsFn  func(ctx context.Context, arg database.AssignmentMetricsParams) (database.AssignmentMetrics, error)
	resetRoundRobinCursorFn func(ctx context.Context, branchID uuid.UUID) (int64, error)
}

func (m *mockStore) GetBranchHierarchy(ctx context.Context, branchID uuid.UUID) (database.BranchHierarchy, error) {
	if m.getBranchHierarchyFn != nil {
		return m.getBranchHierarchyFn(ctx, branchID)
	}
	return database.BranchHierarchy{}, pgx.ErrNoRows
}

func (m *mockStore) LockBranch(ctx context.Context, branchID uuid.UUID) error {
	if m.lockBranchFn != nil {
		return m.lockBranchFn(ctx, branchID)
	}
	return nil
}

func (m *mockStore) ListActiveBranches(ctx context.Context) ([]database.Branch, error) {
	if m.listActiveBranchesFn != nil {
		return m.listActiveBranchesFn(ctx)
	}
	return []database.Branch{}, nil
}

func (m *mockStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, id)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockStore) AssignOrder(ctx context.Context, arg database.AssignOrderParams) (database.Order, error) {
	if m.assignOrderFn != nil {
		return m.assignOrderFn(ctx, arg)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, arg)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockStore) InsertAssignmentHistory(ctx context.Context, arg database.InsertAssignmentHistoryParams) (database.AssignmentHistory, error) {
	if m.insertHistoryFn != nil {
		return m.insertHistoryFn(ctx, arg)
	}
	return database.AssignmentHistory{}, nil
}

func (m *mockStore) ListOrphanOrders(ctx context.Context, cutoff time.Time) ([]database.Order, error) {
	if m.listOrphanOrdersFn != nil {
		return m.listOrphanOrdersFn(ctx, cutoff)
	}
	return []database.Order{}, nil
}

func (m *mockStore) GetStaff(ctx context.Context, id uuid.UUID) (database.Staff, error) {
	if m.getStaffFn != nil {
		return m.getStaffFn(ctx, id)
	}
	return database.Staff{}, pgx.ErrNoRows
}

func (m *mockStore) ListAvailableWaiters(ctx context.Context, branchID uuid.UUID) ([]database.Staff, error) {
	if m.listAvailableWaitersFn != nil {
		return m.listAvailableWaitersFn(ctx, branchID)
	}
	return []database.Staff{}, nil
}

func (m *mockStore) IncrementWaiterLoad(ctx context.Context, id uuid.UUID) (database.Staff, error) {
	if m.incrementWaiterLoadFn != nil {
		return m.incrementWaiterLoadFn(ctx, id)
	}
	return database.Staff{}, pgx.ErrNoRows
}

func (m *mockStore) DecrementWaiterLoad(ctx context.Context, id uuid.UUID) (database.Staff, error) {
	if m.decrementWaiterLoadFn != nil {
		return m.decrementWaiterLoadFn(ctx, id)
	}
	return database.Staff{}, pgx.ErrNoRows
}

func (m *mockStore) SetStaffAvailability(ctx context.Context, arg database.SetStaffAvailabilityParams) (database.Staff, error) {
	if m.setStaffAvailabilityFn != nil {
		return m.setStaffAvailabilityFn(ctx, arg)
	}
	return database.Staff{}, pgx.ErrNoRows
}

func (m *mockStore) GetBranchUtilization(ctx context.Context, branchID uuid.UUID) (database.BranchUtilization, error) {
	if m.getBranchUtilizationFn != nil {
		return m.getBranchUtilizationFn(ctx, branchID)
	}
	return database.BranchUtilization{}, nil
}

func (m *mockStore) GetRoundRobinCursor(ctx context.Context, branchID uuid.UUID) (int32, error) {
	if m.getRoundRobinCursorFn != nil {
		return m.getRoundRobinCursorFn(ctx, branchID)
	}
	return 0, nil
}

func (m *mockStore) SetRoundRobinCursor(ctx context.Context, arg database.SetRoundRobinCursorParams) error {
	if m.setRoundRobinCursorFn != nil {
		return m.setRoundRobinCursorFn(ctx, arg)
	}
	return nil
}

func (m *mockStore) EnqueueOrder(ctx context.Context, arg database.EnqueueOrderParams) (database.QueueEntry, error) {
	if m.enqueueOrderFn != nil {
		return m.enqueueOrderFn(ctx, arg)
	}
	return database.QueueEntry{}, nil
}

func (m *mockStore) GetQueueEntryByOrder(ctx context.Context, orderID uuid.UUID) (database.QueueEntry, error) {
	if m.getQueueEntryByOrderFn != nil {
		return m.getQueueEntryByOrderFn(ctx, orderID)
	}
	return database.QueueEntry{}, pgx.ErrNoRows
}

func (m *mockStore) DequeueNext(ctx context.Context, branchID uuid.UUID) (database.QueueEntry, error) {
	if m.dequeueNextFn != nil {
		return m.dequeueNextFn(ctx, branchID)
	}
	return database.QueueEntry{}, pgx.ErrNoRows
}

func (m *mockStore) UpdateQueuePriority(ctx context.Context, arg database.UpdateQueuePriorityParams) (database.QueueEntry, error) {
	if m.updateQueuePriorityFn != nil {
		return m.updateQueuePriorityFn(ctx, arg)
	}
	return database.QueueEntry{}, pgx.ErrNoRows
}

func (m *mockStore) RemoveQueueEntry(ctx context.Context, orderID uuid.UUID) (database.QueueEntry, error) {
	if m.removeQueueEntryFn != nil {
		return m.removeQueueEntryFn(ctx, orderID)
	}
	return database.QueueEntry{}, pgx.ErrNoRows
}

func (m *mockStore) CountQueueByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	if m.countQueueByBranchFn != nil {
		return m.countQueueByBranchFn(ctx, branchID)
	}
	return 0, nil
}

func (m *mockStore) QueuePosition(ctx context.Context, entryID uuid.UUID) (int, error) {
	if m.queuePositionFn != nil {
		return m.queuePositionFn(ctx, entryID)
	}
	return 0, pgx.ErrNoRows
}

func (m *mockStore) ListQueueByBranch(ctx context.Context, branchID uuid.UUID) ([]database.QueueEntry, error) {
	if m.listQueueByBranchFn != nil {
		return m.listQueueByBranchFn(ctx, branchID)
	}
	return []database.QueueEntry{}, nil
}

func (m *mockStore) ListQueuedBranches(ctx context.Context) ([]uuid.UUID, error) {
	if m.listQueuedBranchesFn != nil {
		return m.listQueuedBranchesFn(ctx)
	}
	return []uuid.UUID{}, nil
}

func (m *mockStore) GetWaiterPerformance(ctx context.Context, staffID uuid.UUID) (database.WaiterPerformance, error) {
	if m.getWaiterPerformanceFn != nil {
		return m.getWaiterPerformanceFn(ctx, staffID)
	}
	return database.WaiterPerformance{}, pgx.ErrNoRows
}

func (m *mockStore) ListBranchesByHotel(ctx context.Context, hotelID uuid.UUID) ([]database.Branch, error) {
	if m.listBranchesByHotelFn != nil {
		return m.listBranchesByHotelFn(ctx, hotelID)
	}
	return []database.Branch{}, nil
}

func (m *mockStore) GetAssignmentMetrics(ctx context.Context, arg database.AssignmentMetricsParams) (database.AssignmentMetrics, error) {
	if m.getAssignmentMetricsFn != nil {
		return m.getAssignmentMetricsFn(ctx, arg)
	}
	return database.AssignmentMetrics{}, nil
}

func (m *mockStore) ResetRoundRobinCursor(ctx context.Context, branchID uuid.UUID) (int64, error) {
	if m.resetRoundRobinCursorFn != nil {
		return m.resetRoundRobinCursorFn(ctx, branchID)
	}
	return 0, nil
}

// --- Test helpers ---

func testClaims(branchID, hotelID uuid.UUID, role string) *auth.Claims {
	return &auth.Claims{
		StaffID:  uuid.New(),
		BranchID: branchID,
		HotelID:  hotelID,
		Role:     role,
	}
}

func waiterClaims(branchID uuid.UUID) *auth.Claims {
	return testClaims(branchID, uuid.New(), enum.RoleWaiter)
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.StaffID, claims.BranchID, claims.HotelID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

// envelopeData extracts the data object of a success envelope.
func envelopeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := decodeEnvelope(t, rr)
	if resp["success"] != true {
		t.Fatalf("success: got %v, want true; body: %s", resp["success"], rr.Body.String())
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data not present in response: %s", rr.Body.String())
	}
	return data
}
