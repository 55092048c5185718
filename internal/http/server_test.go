package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/ledger"
	applog "gastos/internal/log"
	"gastos/internal/middleware/ratelimit"
	"gastos/internal/persistence"
	"gastos/internal/persistence/memory"
)

// switchRepo fails every Apply while fail is set.
type switchRepo struct {
	persistence.Repository
	fail error
}

func (r *switchRepo) Apply(ctx context.Context, userID string, cs persistence.ChangeSet) error {
	if r.fail != nil {
		return r.fail
	}
	return r.Repository.Apply(ctx, userID, cs)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, opts ...Option) (*Server, *switchRepo) {
	t.Helper()
	repo := &switchRepo{Repository: memory.New()}
	n := 0
	store := ledger.NewStore(repo,
		ledger.WithLogger(applog.Discard()),
		ledger.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		ledger.WithClock(func() time.Time { return time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC) }),
	)
	srv := NewServer(":0", store, fakePinger{}, applog.Discard(), opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, repo
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func signIn(t *testing.T, srv *Server) sessionView {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/session", map[string]string{"userId": "user-1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[sessionView](t, rr)
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	srv.backend = fakePinger{err: errors.New("database is locked")}
	rr := do(t, srv, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, CodeUnavailable, decode[ErrorBody](t, rr).Error)
}

func TestResponsesCarryRequestIDAndSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/session", nil)

	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/expenses", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	sess := signIn(t, srv)
	assert.True(t, sess.SignedIn)
	assert.Equal(t, "user-1", sess.UserID)
	assert.NotEmpty(t, sess.DefaultAccountID)

	rr = do(t, srv, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]categoryView](t, rr), 12)

	rr = do(t, srv, http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/session", nil)
	assert.False(t, decode[sessionView](t, rr).SignedIn)
	rr = do(t, srv, http.MethodGet, "/api/categories", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSignInRejectsBlankUser(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/session", map[string]string{"userId": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decode[ErrorBody](t, rr).Fields, "userId")
}

func TestCreateAndListExpense(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := signIn(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount":      "12,34",
		"category":    "Comida",
		"description": "  Almuerzo  ",
		"date":        "2025-03-10",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	e := decode[expenseView](t, rr)
	assert.Equal(t, int64(1234), e.Amount.Cents)
	assert.Equal(t, "12.34", e.Amount.Decimal)
	assert.Equal(t, "Almuerzo", e.Description)
	assert.Equal(t, sess.DefaultAccountID, e.AccountID)
	assert.Nil(t, e.Installment)

	rr = do(t, srv, http.MethodGet, "/api/expenses?month=2025-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]expenseView](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].ID)

	// Without ?month the store clock picks March 2025.
	rr = do(t, srv, http.MethodGet, "/api/expenses", nil)
	assert.Len(t, decode[[]expenseView](t, rr), 1)

	rr = do(t, srv, http.MethodGet, "/api/expenses?month=2025-04", nil)
	assert.Empty(t, decode[[]expenseView](t, rr))

	rr = do(t, srv, http.MethodPost, "/api/incomes", map[string]any{
		"amount":      1000,
		"description": "Sueldo",
		"date":        "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/overview?month=2025-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ov := decode[overviewView](t, rr)
	assert.Equal(t, "2025-03", ov.Month)
	assert.Equal(t, int64(100000), ov.Income.Cents)
	assert.Equal(t, int64(1234), ov.Expenses.Cents)
	assert.Equal(t, int64(100000-1234), ov.Balance.Cents)
}

func TestCreateExpenseValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	signIn(t, srv)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantField  string
	}{
		{
			name:       "malformed json",
			body:       `{"amount": `,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       map[string]any{"amount": "1", "category": "Comida", "description": "x", "date": "2025-03-01", "primary": "x"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing description",
			body:       map[string]any{"amount": "1", "category": "Comida", "date": "2025-03-01"},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "description",
		},
		{
			name:       "zero amount",
			body:       map[string]any{"amount": "0", "category": "Comida", "description": "x", "date": "2025-03-01"},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "amount",
		},
		{
			name:       "bad date",
			body:       map[string]any{"amount": "1", "category": "Comida", "description": "x", "date": "01/03/2025"},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "date",
		},
		{
			name:       "too many installments",
			body:       map[string]any{"amount": "1", "category": "Comida", "description": "x", "date": "2025-03-01", "installments": 61},
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "installments",
		},
		{
			name:       "unknown account",
			body:       map[string]any{"amount": "1", "category": "Comida", "description": "x", "date": "2025-03-01", "accountId": "nope"},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/expenses", tt.body)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantField != "" {
				assert.Contains(t, decode[ErrorBody](t, rr).Fields, tt.wantField)
			}
		})
	}
}

func TestInstallmentExpense(t *testing.T) {
	srv, _ := newTestServer(t)
	signIn(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount":       "300",
		"category":     "Casa",
		"description":  "Heladera",
		"date":         "2025-03-05",
		"installments": 3,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	xs := decode[[]expenseView](t, rr)
	require.Len(t, xs, 3)
	for i, e := range xs {
		require.NotNil(t, e.Installment)
		assert.Equal(t, i+1, e.Installment.Current)
		assert.Equal(t, 3, e.Installment.Total)
		assert.Equal(t, int64(10000), e.Amount.Cents)
	}
	assert.Equal(t, "2025-05-05", xs[2].Date)

	rr = do(t, srv, http.MethodGet, "/api/projection", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[projectionView](t, rr)
	assert.Equal(t, int64(10000), p.Current.Cents)
	assert.Equal(t, int64(20000), p.Future.Cents)

	// Installment counts are fixed once created.
	rr = do(t, srv, http.MethodPut, "/api/expenses/"+xs[0].ID, map[string]any{
		"amount": "100", "category": "Casa", "description": "Heladera", "date": "2025-03-05", "installments": 4,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCategoryExpensesAndIncomeHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	signIn(t, srv)

	for _, body := range []map[string]any{
		{"amount": "10", "category": "Comida", "description": "Super", "date": "2025-03-02"},
		{"amount": "15", "category": "Comida", "description": "Verduleria", "date": "2025-03-09"},
		{"amount": "99", "category": "Casa", "description": "Luz", "date": "2025-03-04"},
	} {
		rr := do(t, srv, http.MethodPost, "/api/expenses", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr := do(t, srv, http.MethodGet, "/api/expenses?month=2025-03&category=Comida", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]expenseView](t, rr), 2)

	var comida categoryView
	for _, c := range decode[[]categoryView](t, do(t, srv, http.MethodGet, "/api/categories", nil)) {
		if c.Name == "Comida" {
			comida = c
		}
	}
	require.NotEmpty(t, comida.ID)

	rr = do(t, srv, http.MethodGet, "/api/categories/"+comida.ID+"/expenses?month=2025-03", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	detail := decode[categoryDetailView](t, rr)
	assert.Equal(t, "2025-03", detail.Month)
	assert.Equal(t, int64(2500), detail.Total.Cents)
	require.Len(t, detail.Expenses, 2)
	assert.Equal(t, "Verduleria", detail.Expenses[0].Description)

	rr = do(t, srv, http.MethodGet, "/api/categories/nope/expenses", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	for _, body := range []map[string]any{
		{"amount": "1000", "description": "Sueldo", "date": "2025-02-01"},
		{"amount": "1000", "description": "Sueldo", "date": "2025-03-01"},
		{"amount": "250", "description": "Venta", "date": "2025-03-12"},
	} {
		rr := do(t, srv, http.MethodPost, "/api/incomes", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/incomes/by-month", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	h := decode[incomeHistoryView](t, rr)
	assert.Equal(t, 3, h.Count)
	assert.Equal(t, int64(225000), h.Total.Cents)
	require.Len(t, h.Months, 2)
	assert.Equal(t, "2025-03", h.Months[0].Month)
	assert.Equal(t, int64(125000), h.Months[0].Total.Cents)
	assert.Equal(t, "Venta", h.Months[0].Incomes[0].Description)
}

func TestLongDescriptions(t *testing.T) {
	srv, _ := newTestServer(t)
	signIn(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "1200", "category": "Casa", "description": strings.Repeat("a", 195),
		"date": "2025-03-05", "installments": 12,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	xs := decode[[]expenseView](t, rr)
	require.Len(t, xs, 12)

	rr = do(t, srv, http.MethodPut, "/api/expenses/"+xs[0].ID, map[string]any{
		"amount": "150", "category": "Casa", "description": xs[0].Description, "date": xs[0].Date,
	})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "5", "category": "Comida", "description": strings.Repeat("á", 150), "date": "2025-03-06",
	})
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "5", "category": "Comida", "description": strings.Repeat("á", 201), "date": "2025-03-06",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decode[ErrorBody](t, rr).Fields, "description")
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	srv, _ := newTestServer(t)
	signIn(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "5", "category": "Comida", "description": "Cafe", "date": "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[expenseView](t, rr).ID

	rr = do(t, srv, http.MethodPut, "/api/expenses/"+id, map[string]any{
		"amount": "7.5", "category": "Salidas", "description": "Cafe", "date": "2025-04-02",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, int64(750), decode[expenseView](t, rr).Amount.Cents)

	rr = do(t, srv, http.MethodGet, "/api/expenses?month=2025-04", nil)
	assert.Len(t, decode[[]expenseView](t, rr), 1)

	rr = do(t, srv, http.MethodDelete, "/api/expenses/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/expenses/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorBody](t, rr).Error)
}

func TestCategoryConflicts(t *testing.T) {
	srv, _ := newTestServer(t)
	signIn(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "casa"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, CodeDuplicateName, decode[ErrorBody](t, rr).Error)

	rr = do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Mascotas", "color": "not a color!"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/categories", map[string]any{"name": "Mascotas", "color": "#ABC", "icon": "🐶"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	cat := decode[categoryView](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "20", "category": "Mascotas", "description": "Alimento", "date": "2025-03-02",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/categories/"+cat.ID, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, CodeHasDependents, decode[ErrorBody](t, rr).Error)

	// Renaming keeps the stored color and icon and moves the expense along.
	rr = do(t, srv, http.MethodPut, "/api/categories/"+cat.ID, map[string]any{"name": "Animales"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	renamed := decode[categoryView](t, rr)
	assert.Equal(t, "#ABC", renamed.Color)
	assert.Equal(t, "🐶", renamed.Icon)

	rr = do(t, srv, http.MethodGet, "/api/expenses?month=2025-03", nil)
	xs := decode[[]expenseView](t, rr)
	require.Len(t, xs, 1)
	assert.Equal(t, "Animales", xs[0].Category)
}

func TestAccountsAndTransfer(t *testing.T) {
	srv, _ := newTestServer(t)
	sess := signIn(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/accounts", map[string]any{"name": "Ahorro", "color": "#10B981"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	savings := decode[accountView](t, rr)
	assert.False(t, savings.Default)

	rr = do(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"from": sess.DefaultAccountID, "to": sess.DefaultAccountID, "amount": "10", "description": "x", "date": "2025-03-03",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decode[ErrorBody](t, rr).Fields, "to")

	rr = do(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"from": sess.DefaultAccountID, "to": savings.ID, "amount": "50", "description": "Fondo", "date": "2025-03-03",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tr := decode[transferView](t, rr)
	assert.Equal(t, sess.DefaultAccountID, tr.Expense.AccountID)
	assert.Equal(t, savings.ID, tr.Income.AccountID)
	assert.Equal(t, int64(5000), tr.Income.Amount.Cents)

	rr = do(t, srv, http.MethodDelete, "/api/accounts/"+savings.ID, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/accounts/"+sess.DefaultAccountID, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/accounts/"+savings.ID+"/default", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, srv, http.MethodGet, "/api/session", nil)
	assert.Equal(t, savings.ID, decode[sessionView](t, rr).DefaultAccountID)

	rr = do(t, srv, http.MethodGet, "/api/accounts/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sums := decode[[]accountSummaryView](t, rr)
	require.Len(t, sums, 2)
	assert.Equal(t, "Ahorro", sums[0].Account.Name)

	rr = do(t, srv, http.MethodGet, "/api/overview?month=2025-03&account="+savings.ID, nil)
	ov := decode[overviewView](t, rr)
	assert.Equal(t, int64(5000), ov.Income.Cents)
	assert.Equal(t, savings.ID, ov.AccountID)
}

func TestPersistenceFailureIsBadGateway(t *testing.T) {
	srv, repo := newTestServer(t)
	signIn(t, srv)

	repo.fail = errors.New("disk full")
	rr := do(t, srv, http.MethodPost, "/api/incomes", map[string]any{
		"amount": "10", "description": "Venta", "date": "2025-03-04",
	})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, CodePersistenceFailed, decode[ErrorBody](t, rr).Error)

	repo.fail = nil
	rr = do(t, srv, http.MethodGet, "/api/incomes?month=2025-03", nil)
	assert.Empty(t, decode[[]incomeView](t, rr))

	rr = do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rr.Body.String(), "gastos_ledger_persist_failures_total 1")
}

func TestInvalidMonthQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	signIn(t, srv)

	rr := do(t, srv, http.MethodGet, "/api/overview?month=2025-13", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, decode[ErrorBody](t, rr).Fields, "month")
}

func TestWriteRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(ratelimit.Config{RequestsPerMinute: 2}))
	signIn(t, srv)

	body := map[string]any{"name": "Viajes"}
	rr := do(t, srv, http.MethodPost, "/api/categories", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/categories", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, CodeRateLimited, decode[ErrorBody](t, rr).Error)

	// Reads are never limited.
	rr = do(t, srv, http.MethodGet, "/api/categories", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rr.Body.String(), "gastos_ratelimit_rejected_total 1")
}
