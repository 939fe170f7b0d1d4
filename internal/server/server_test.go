package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/procura/internal/auth/domain"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/observability"
	obsmetrics "github.com/smallbiznis/procura/internal/observability/metrics"
	pricedomain "github.com/smallbiznis/procura/internal/price/domain"
	pricerequestdomain "github.com/smallbiznis/procura/internal/pricerequest/domain"
	"github.com/smallbiznis/procura/internal/ratelimit"
	supplierdomain "github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	adminActor     = authorization.Actor{UserID: 1, Role: authorization.RoleAdmin}
	purchaserActor = authorization.Actor{UserID: 2, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{100}, nil)}
)

type fakeAuthService struct {
	actors map[string]authorization.Actor
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if req.Password != "secret" {
		return nil, authdomain.ErrInvalidCredentials
	}
	return &authdomain.LoginResult{AccessToken: "admin-token", TokenType: "Bearer"}, nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (authorization.Actor, error) {
	actor, ok := f.actors[rawToken]
	if !ok {
		return authorization.Actor{}, authdomain.ErrInvalidToken
	}
	return actor, nil
}

type fakePriceRequests struct {
	pricerequestdomain.Service
	cancelErr error
	createErr error
	actor     authorization.Actor
}

func (f *fakePriceRequests) Cancel(ctx context.Context, actor authorization.Actor, id string) (*pricerequestdomain.Response, error) {
	f.actor = actor
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &pricerequestdomain.Response{ID: id, Status: pricerequestdomain.StatusCancelled}, nil
}

func (f *fakePriceRequests) Create(ctx context.Context, actor authorization.Actor, req pricerequestdomain.CreateRequest) (*pricerequestdomain.Response, error) {
	f.actor = actor
	return nil, f.createErr
}

type fakeTokens struct {
	supplierdomain.TokenService
	supplier *supplierdomain.Supplier
	calls    int
}

func (f *fakeTokens) GetOrCreate(ctx context.Context, supplierID string) (*supplierdomain.TokenResponse, error) {
	f.calls++
	return &supplierdomain.TokenResponse{SupplierID: supplierID, Token: "tok"}, nil
}

func (f *fakeTokens) Authenticate(ctx context.Context, token string) (*supplierdomain.Supplier, error) {
	if token != "good-token" {
		return nil, supplierdomain.ErrInvalidToken
	}
	return f.supplier, nil
}

type fakePrices struct {
	pricedomain.Service
	supplier *supplierdomain.Supplier
	req      pricedomain.SupplierQuoteRequest
}

func (f *fakePrices) SubmitFromSupplier(ctx context.Context, supplier *supplierdomain.Supplier, req pricedomain.SupplierQuoteRequest) (*pricedomain.SupplierQuoteResponse, error) {
	f.supplier = supplier
	f.req = req
	return &pricedomain.SupplierQuoteResponse{RespondedRequests: 1}, nil
}

type fakeLimiter struct {
	allowed bool
}

func (f *fakeLimiter) Allow(ctx context.Context, client string) (*ratelimit.RateLimitResult, error) {
	return &ratelimit.RateLimitResult{Allowed: f.allowed, RetryAfter: 4 * time.Second}, nil
}

type testDeps struct {
	priceRequests *fakePriceRequests
	tokens        *fakeTokens
	prices        *fakePrices
	limiter       ratelimit.ClientLimiter
}

func newTestServer(t *testing.T, deps testDeps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if deps.priceRequests == nil {
		deps.priceRequests = &fakePriceRequests{}
	}
	if deps.tokens == nil {
		deps.tokens = &fakeTokens{}
	}
	if deps.prices == nil {
		deps.prices = &fakePrices{}
	}

	engine := NewEngine(observability.Config{}, obsmetrics.NewHTTPMetrics())
	NewServer(ServerParams{
		Gin: engine,
		Log: zap.NewNop(),
		Authsvc: &fakeAuthService{actors: map[string]authorization.Actor{
			"admin-token":     adminActor,
			"purchaser-token": purchaserActor,
		}},
		AuthzSvc:        authorization.NewTestService(),
		TokenSvc:        deps.tokens,
		PriceSvc:        deps.prices,
		PriceRequestSvc: deps.priceRequests,
		TokenLimiter:    deps.limiter,
	})
	return engine
}

func do(engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestBearerTokenRequired(t *testing.T) {
	engine := newTestServer(t, testDeps{})

	rec := do(engine, http.MethodPost, "/price-requests/1/cancel", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = do(engine, http.MethodPost, "/price-requests/1/cancel", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancelPassesActorAndMapsOutcomes(t *testing.T) {
	fake := &fakePriceRequests{}
	engine := newTestServer(t, testDeps{priceRequests: fake})

	rec := do(engine, http.MethodPost, "/price-requests/42/cancel", "purchaser-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, purchaserActor.UserID, fake.actor.UserID)

	fake.cancelErr = &pricerequestdomain.ConflictError{Current: pricerequestdomain.StatusCancelled}
	rec = do(engine, http.MethodPost, "/price-requests/42/cancel", "purchaser-token", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "conflict", payload.Type)
	assert.Equal(t, "cancelled", payload.CurrentStatus)

	fake.cancelErr = authorization.ErrForbidden
	rec = do(engine, http.MethodPost, "/price-requests/42/cancel", "purchaser-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	fake.cancelErr = pricerequestdomain.ErrNotFound
	rec = do(engine, http.MethodPost, "/price-requests/42/cancel", "purchaser-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePriceRequestValidationErrors(t *testing.T) {
	fake := &fakePriceRequests{createErr: pricerequestdomain.ErrItemChoice}
	engine := newTestServer(t, testDeps{priceRequests: fake})

	rec := do(engine, http.MethodPost, "/price-requests", "purchaser-token", map[string]any{"supplier_id": "7"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "product_id", payload.Errors[0].Field)
	assert.Equal(t, "exactly_one_item_required", payload.Errors[0].Code)

	fake.createErr = validation.Field("message", "out_of_range", "must be at most 4000")
	rec = do(engine, http.MethodPost, "/price-requests", "purchaser-token", map[string]any{"supplier_id": "7"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "message", decodeError(t, rec).Errors[0].Field)

	rec = do(engine, http.MethodPost, "/price-requests", "purchaser-token", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSupplierTokenEndpointIsPublicAndRateLimited(t *testing.T) {
	tokens := &fakeTokens{}
	limiter := &fakeLimiter{allowed: true}
	engine := newTestServer(t, testDeps{tokens: tokens, limiter: limiter})

	rec := do(engine, http.MethodGet, "/suppliers/55/token", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, tokens.calls)

	limiter.allowed = false
	rec = do(engine, http.MethodGet, "/suppliers/55/token", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, tokens.calls)
}

func TestSupplierPortalAuthenticatesByHeader(t *testing.T) {
	supplier := &supplierdomain.Supplier{ID: 3001, Name: "Farm"}
	prices := &fakePrices{}
	engine := newTestServer(t, testDeps{tokens: &fakeTokens{supplier: supplier}, prices: prices})

	body := map[string]any{"kind": "product", "item_id": "1001", "price": "1.25"}

	rec := do(engine, http.MethodPost, "/supplier-portal/quotes", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/supplier-portal/quotes", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerSupplierToken, "good-token")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Same(t, supplier, prices.supplier)
	assert.Equal(t, "1001", prices.req.ItemID)
	assert.Equal(t, "1.25", prices.req.Price.Decimal.String())
}

func TestAuditLogsAreAdminOnly(t *testing.T) {
	engine := newTestServer(t, testDeps{})

	rec := do(engine, http.MethodGet, "/audit-logs", "purchaser-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	engine := newTestServer(t, testDeps{})

	rec := do(engine, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pricedomain.ErrDuplicateQuote, http.StatusConflict},
		{supplierdomain.ErrInUse, http.StatusConflict},
		{supplierdomain.ErrTokenExpired, http.StatusUnauthorized},
		{&pricerequestdomain.ImmutableFieldError{Field: "supplier_id"}, http.StatusBadRequest},
		{pricerequestdomain.ErrEmptyBulkFilter, http.StatusBadRequest},
		{ErrRateLimited, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}

	_, payload := mapError(&pricerequestdomain.ImmutableFieldError{Field: "supplier_id"})
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "immutable", payload.Errors[0].Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken(""))
}
