package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/application/aggregation"
	"github.com/xiebiao/stockhub/internal/application/publishing"
	"github.com/xiebiao/stockhub/internal/application/reservation"
	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/internal/domain/failedevent"
	"github.com/xiebiao/stockhub/internal/domain/inventory"
	"github.com/xiebiao/stockhub/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/stockhub/internal/interface/http/handler"
	"github.com/xiebiao/stockhub/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/jwt"
	"github.com/xiebiao/stockhub/pkg/response"
	"github.com/xiebiao/stockhub/pkg/retry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]bool
	err     error
}

func (b *memoryBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.revoked[tokenID], b.err
}

func (b *memoryBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[tokenID] = true
	return nil
}

type countingLimiter struct {
	mu    sync.Mutex
	limit int
	count int
	err   error
}

func (l *countingLimiter) Allow(ctx context.Context, subject string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, 0, l.err
	}
	l.count++
	if l.count > l.limit {
		return false, 0, nil
	}
	return true, l.limit - l.count, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, evt *event.DomainEvent) publishing.Outcome {
	return publishing.OutcomeDelivered
}

type nopResender struct{}

func (nopResender) Resend(ctx context.Context, fe *failedevent.FailedEvent) error { return nil }

type env struct {
	manager   *jwt.Manager
	blacklist *memoryBlacklist
	limiter   *countingLimiter
}

func newOptions(e *env) Options {
	log := zap.NewNop()
	opts := Options{
		Log:    log,
		Auth:   middleware.NewAuthMiddleware(e.manager, e.blacklist, log),
		Logout: handler.NewAuthHandler(e.manager, e.blacklist, log),
	}
	if e.limiter != nil {
		opts.Limiter = e.limiter
	}
	return opts
}

func newEnv(limiter *countingLimiter) *env {
	return &env{
		manager:   jwt.NewManager("router-test", time.Hour),
		blacklist: &memoryBlacklist{revoked: map[string]bool{}},
		limiter:   limiter,
	}
}

func storeEngine(e *env) *gin.Engine {
	log := zap.NewNop()
	svc := inventory.NewService(memory.NewInventoryRepository(), retry.ConcurrencyPolicy())
	uc := reservation.NewUseCase(svc, event.NewFactory(nil), nopPublisher{}, log)

	store := memory.NewFailedEventRepository()
	scheduler := publishing.NewScheduler(store, nopResender{}, publishing.SchedulerConfig{}, log, nil)

	return NewStoreEngine(newOptions(e), StoreHandlers{
		Inventory:    handler.NewInventoryHandler(uc),
		FailedEvents: handler.NewFailedEventHandler(publishing.NewAdminUseCase(store, scheduler, log, nil)),
	})
}

func centralEngine(e *env) *gin.Engine {
	log := zap.NewNop()
	stores := memory.NewStoreInventoryRepository()
	globals := memory.NewGlobalInventoryRepository()
	ledger := memory.NewEventLedger()
	ingest := aggregation.NewIngestUseCase(memory.Transactor{}, stores, globals, ledger, retry.ConcurrencyPolicy(), log)

	return NewCentralEngine(newOptions(e), CentralHandlers{
		Central: handler.NewCentralHandler(aggregation.NewQueryUseCase(stores, globals), ingest),
		Ledger:  handler.NewLedgerHandler(aggregation.NewAdminUseCase(ledger, log, nil)),
	})
}

func call(t *testing.T, r http.Handler, method, path, token string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestStoreEngine_Auth(t *testing.T) {
	e := newEnv(nil)
	r := storeEngine(e)

	tok, err := e.manager.Issue("ops", jwt.RoleOperator)
	require.NoError(t, err)

	t.Run("未带Token", func(t *testing.T) {
		_, resp := call(t, r, http.MethodGet, "/api/v1/admin/failed-events", "")
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("Token无效", func(t *testing.T) {
		_, resp := call(t, r, http.MethodGet, "/api/v1/admin/failed-events", "garbage")
		assert.Equal(t, apperrors.ErrCodeInvalidToken, resp.Code)
	})

	t.Run("非运维角色", func(t *testing.T) {
		viewer, err := e.manager.Issue("guest", "viewer")
		require.NoError(t, err)
		_, resp := call(t, r, http.MethodGet, "/api/v1/admin/failed-events", viewer.AccessToken)
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})

	t.Run("运维Token可访问", func(t *testing.T) {
		_, resp := call(t, r, http.MethodGet, "/api/v1/admin/failed-events", tok.AccessToken)
		assert.Equal(t, 0, resp.Code, resp.Message)
	})

	t.Run("吊销后不可再用", func(t *testing.T) {
		_, resp := call(t, r, http.MethodPost, "/api/v1/admin/logout", tok.AccessToken)
		require.Equal(t, 0, resp.Code, resp.Message)
		assert.True(t, e.blacklist.revoked[tok.TokenID])

		_, resp = call(t, r, http.MethodGet, "/api/v1/admin/failed-events", tok.AccessToken)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, resp.Code)
	})

	t.Run("黑名单不可用", func(t *testing.T) {
		other, err := e.manager.Issue("ops", jwt.RoleOperator)
		require.NoError(t, err)
		e.blacklist.err = errors.New("redis down")
		defer func() { e.blacklist.err = nil }()

		_, resp := call(t, r, http.MethodGet, "/api/v1/admin/failed-events", other.AccessToken)
		assert.Equal(t, apperrors.ErrCodeInternal, resp.Code)
	})
}

func TestStoreEngine_PublicRoutes(t *testing.T) {
	r := storeEngine(newEnv(nil))

	w, resp := call(t, r, http.MethodGet, "/ping", "")
	assert.Equal(t, 0, resp.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	_, resp = call(t, r, http.MethodGet, "/api/v1/inventory/store-1/NOPE", "")
	assert.Equal(t, apperrors.ErrCodeInventoryNotFound, resp.Code, "库存接口不需要Token")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	r.ServeHTTP(mw, req)
	assert.Equal(t, http.StatusOK, mw.Code)
	assert.Contains(t, mw.Body.String(), "http_requests_total")
}

func TestRequestIDPropagated(t *testing.T) {
	r := storeEngine(newEnv(nil))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderRequestID))
}

func TestRateLimit(t *testing.T) {
	t.Run("超出配额返回42900", func(t *testing.T) {
		r := storeEngine(newEnv(&countingLimiter{limit: 2}))

		for i := 0; i < 2; i++ {
			_, resp := call(t, r, http.MethodGet, "/api/v1/inventory/store-1/SKU", "")
			assert.NotEqual(t, apperrors.ErrCodeTooManyRequests, resp.Code)
		}
		w, resp := call(t, r, http.MethodGet, "/api/v1/inventory/store-1/SKU", "")
		assert.Equal(t, apperrors.ErrCodeTooManyRequests, resp.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

		_, resp = call(t, r, http.MethodGet, "/ping", "")
		assert.Equal(t, 0, resp.Code, "健康检查不限流")
	})

	t.Run("限流器出错时放行", func(t *testing.T) {
		r := storeEngine(newEnv(&countingLimiter{limit: 1, err: errors.New("redis down")}))
		_, resp := call(t, r, http.MethodGet, "/api/v1/inventory/store-1/SKU", "")
		assert.Equal(t, apperrors.ErrCodeInventoryNotFound, resp.Code)
	})
}

func TestCentralEngine(t *testing.T) {
	e := newEnv(nil)
	r := centralEngine(e)

	_, resp := call(t, r, http.MethodGet, "/api/v1/central/inventory/low-stock?threshold=5", "")
	assert.Equal(t, 0, resp.Code, "静态路由优先于:sku")

	_, resp = call(t, r, http.MethodGet, "/api/v1/central/stores/stats", "")
	assert.Equal(t, 0, resp.Code)

	_, resp = call(t, r, http.MethodGet, "/api/v1/admin/events", "")
	assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)

	tok, err := e.manager.Issue("ops", jwt.RoleOperator)
	require.NoError(t, err)
	_, resp = call(t, r, http.MethodGet, "/api/v1/admin/events", tok.AccessToken)
	assert.Equal(t, 0, resp.Code, resp.Message)
}
