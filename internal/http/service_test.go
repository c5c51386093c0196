package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/inventory-api/internal/auth"
	"github.com/tuanvumaihuynh/inventory-api/internal/config"
	apphttp "github.com/tuanvumaihuynh/inventory-api/internal/http"
	"github.com/tuanvumaihuynh/inventory-api/internal/model"
	"github.com/tuanvumaihuynh/inventory-api/internal/service"
)

const validToken = "valid-token"

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, rawToken string) (auth.Claims, error) {
	switch rawToken {
	case "":
		return auth.Claims{}, auth.ErrMissingToken
	case validToken:
		return auth.Claims{}, nil
	default:
		return auth.Claims{}, auth.ErrInvalidToken
	}
}

type fakeHealthChecker struct {
	err error
}

func (c fakeHealthChecker) IsHealthy(context.Context) (bool, error) {
	return c.err == nil, c.err
}

type fakeProductService struct {
	mu       sync.Mutex
	products map[int64]model.Product
	nextID   int64
	calls    int
	err      error
}

func newFakeProductService() *fakeProductService {
	return &fakeProductService{products: map[int64]model.Product{}, nextID: 1}
}

func (s *fakeProductService) CreateProduct(_ context.Context, params service.CreateProductParams) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p := model.Product{
		ID:          s.nextID,
		Name:        params.Name,
		Description: params.Description,
		Price:       params.Price,
		Quantity:    params.Quantity,
		Category:    params.Category,
		CreatedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	s.products[p.ID] = p
	s.nextID++
	return p, nil
}

func (s *fakeProductService) GetProduct(_ context.Context, id int64) (model.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p, ok := s.products[id]
	return p, ok, nil
}

func (s *fakeProductService) ListProducts(context.Context) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	products := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	return products, nil
}

func (s *fakeProductService) UpdateProduct(_ context.Context, params service.UpdateProductParams) (model.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	p, ok := s.products[params.ID]
	if !ok {
		return model.Product{}, false, nil
	}
	now := p.CreatedAt.Add(time.Hour)
	p.Name, p.Description, p.Price, p.Quantity, p.Category = params.Name, params.Description, params.Price, params.Quantity, params.Category
	p.UpdatedAt = &now
	s.products[p.ID] = p
	return p, true, nil
}

func (s *fakeProductService) DeleteProduct(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	_, ok := s.products[id]
	delete(s.products, id)
	return ok, nil
}

func newRouter(t *testing.T, svc service.ProductService, health fakeHealthChecker) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.HTTP{Swagger: true, CORSAllowedOrigins: []string{"http://localhost:5173"}}

	r, err := apphttp.New(cfg, logger, fakeVerifier{}, health, svc).Router(context.Background())
	require.NoError(t, err)
	return r
}

func do(r http.Handler, method, target, body string, authenticated bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+validToken)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

const widgetBody = `{"name":"Widget","description":"A small widget","price":9.99,"quantity":5,"category":"Tools"}`

func TestProductRoutes(t *testing.T) {
	t.Run("Should reject requests without a bearer token before the handler runs", func(t *testing.T) {
		svc := newFakeProductService()
		r := newRouter(t, svc, fakeHealthChecker{})

		rec := do(r, http.MethodGet, "/api/products", "", false)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
		assert.Zero(t, svc.calls)
	})

	t.Run("Should create widget", func(t *testing.T) {
		r := newRouter(t, newFakeProductService(), fakeHealthChecker{})

		rec := do(r, http.MethodPost, "/api/products", widgetBody, true)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "/api/products/1", rec.Header().Get("Location"))
		assert.JSONEq(t, `{
			"id": 1,
			"name": "Widget",
			"description": "A small widget",
			"price": 9.99,
			"quantity": 5,
			"category": "Tools",
			"createdAt": "2024-01-01T12:00:00Z",
			"updatedAt": null
		}`, rec.Body.String())
	})

	t.Run("Should get and list created products", func(t *testing.T) {
		r := newRouter(t, newFakeProductService(), fakeHealthChecker{})
		require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/products", widgetBody, true).Code)

		rec := do(r, http.MethodGet, "/api/products/1", "", true)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"Widget"`)

		rec = do(r, http.MethodGet, "/api/products", "", true)
		require.Equal(t, http.StatusOK, rec.Code)
		var items []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
		assert.Len(t, items, 1)
	})

	t.Run("Should return an empty array for an empty store", func(t *testing.T) {
		r := newRouter(t, newFakeProductService(), fakeHealthChecker{})

		rec := do(r, http.MethodGet, "/api/products", "", true)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("Should return 404 for unknown ids", func(t *testing.T) {
		svc := newFakeProductService()
		r := newRouter(t, svc, fakeHealthChecker{})

		for _, method := range []string{http.MethodGet, http.MethodDelete} {
			rec := do(r, method, "/api/products/999", "", true)
			assert.Equal(t, http.StatusNotFound, rec.Code, method)
			assert.Equal(t, "PRODUCT_NOT_FOUND", decodeError(t, rec).Code)
		}

		rec := do(r, http.MethodPut, "/api/products/999", widgetBody, true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, svc.products)
	})

	t.Run("Should update then delete", func(t *testing.T) {
		r := newRouter(t, newFakeProductService(), fakeHealthChecker{})
		require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/products", widgetBody, true).Code)

		rec := do(r, http.MethodPut, "/api/products/1",
			`{"name":"Gadget","description":"Bigger","price":"12.5","quantity":1,"category":"Tools"}`, true)
		require.Equal(t, http.StatusOK, rec.Code)
		var updated map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Gadget", updated["name"])
		assert.InDelta(t, 12.5, updated["price"], 0)
		assert.NotNil(t, updated["updatedAt"])

		rec = do(r, http.MethodDelete, "/api/products/1", "", true)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())

		rec = do(r, http.MethodDelete, "/api/products/1", "", true)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Should reject non integer ids", func(t *testing.T) {
		r := newRouter(t, newFakeProductService(), fakeHealthChecker{})

		rec := do(r, http.MethodGet, "/api/products/abc", "", true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, rec).Code)
	})

	t.Run("Should reject invalid bodies", func(t *testing.T) {
		svc := newFakeProductService()
		r := newRouter(t, svc, fakeHealthChecker{})

		tests := map[string]struct {
			body      string
			wantCode  string
			wantField string
		}{
			"missing name":   {body: `{"description":"d"}`, wantCode: "VALIDATION_FAILED", wantField: "name"},
			"name too long":  {body: `{"name":"` + strings.Repeat("n", 201) + `","description":"d"}`, wantCode: "VALIDATION_FAILED", wantField: "name"},
			"category long":  {body: `{"name":"n","description":"d","category":"` + strings.Repeat("c", 101) + `"}`, wantCode: "VALIDATION_FAILED", wantField: "category"},
			"price too big":  {body: `{"name":"n","description":"d","price":1e17}`, wantCode: "VALIDATION_FAILED", wantField: "price"},
			"price too low":  {body: `{"name":"n","description":"d","price":-1e16}`, wantCode: "VALIDATION_FAILED", wantField: "price"},
			"unknown field":  {body: `{"name":"n","description":"d","sku":"x"}`, wantCode: "INVALID_REQUEST_BODY"},
			"malformed json": {body: `{"name":`, wantCode: "INVALID_REQUEST_BODY"},
			"wrong type":     {body: `{"name":"n","description":"d","quantity":"five"}`, wantCode: "INVALID_REQUEST_BODY"},
		}

		for name, tt := range tests {
			t.Run(name, func(t *testing.T) {
				rec := do(r, http.MethodPost, "/api/products", tt.body, true)

				require.Equal(t, http.StatusBadRequest, rec.Code)
				body := decodeError(t, rec)
				assert.Equal(t, tt.wantCode, body.Code)
				if tt.wantField != "" {
					require.NotEmpty(t, body.Details)
					assert.Equal(t, tt.wantField, body.Details[0].Field)
				}
			})
		}

		assert.Empty(t, svc.products)
	})

	t.Run("Should reject a huge price exponent promptly", func(t *testing.T) {
		svc := newFakeProductService()
		r := newRouter(t, svc, fakeHealthChecker{})

		start := time.Now()
		rec := do(r, http.MethodPost, "/api/products", `{"name":"n","description":"d","price":1e10000000}`, true)

		assert.Less(t, time.Since(start), time.Second)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "VALIDATION_FAILED", body.Code)
		require.NotEmpty(t, body.Details)
		assert.Equal(t, "price", body.Details[0].Field)
		assert.Empty(t, svc.products)
	})

	t.Run("Should accept the largest storable price", func(t *testing.T) {
		r := newRouter(t, newFakeProductService(), fakeHealthChecker{})

		rec := do(r, http.MethodPost, "/api/products", `{"name":"n","description":"d","price":9999999999999999.99}`, true)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"price":9999999999999999.99`)
	})

	t.Run("Should hide internal errors", func(t *testing.T) {
		svc := newFakeProductService()
		svc.err = errors.New("connection reset by peer")
		r := newRouter(t, svc, fakeHealthChecker{})

		rec := do(r, http.MethodGet, "/api/products", "", true)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "internalServerError", body.Code)
		assert.NotContains(t, body.Message, "connection")
	})
}

func TestOperationalRoutes(t *testing.T) {
	t.Run("Should report healthy without a token", func(t *testing.T) {
		rec := do(newRouter(t, newFakeProductService(), fakeHealthChecker{}), http.MethodGet, "/healthz", "", false)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Should report unavailable database", func(t *testing.T) {
		rec := do(newRouter(t, newFakeProductService(), fakeHealthChecker{err: errors.New("down")}), http.MethodGet, "/healthz", "", false)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("Should expose metrics and docs without a token", func(t *testing.T) {
		r := newRouter(t, newFakeProductService(), fakeHealthChecker{})
		do(r, http.MethodGet, "/api/products", "", true)

		rec := do(r, http.MethodGet, "/metrics", "", false)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "inventory_api_http_requests_total")

		for _, path := range []string{"/docs", "/docs/openapi.yml", "/docs/openapi.json"} {
			assert.Equal(t, http.StatusOK, do(r, http.MethodGet, path, "", false).Code, path)
		}
	})

	t.Run("Should echo a correlation id", func(t *testing.T) {
		rec := do(newRouter(t, newFakeProductService(), fakeHealthChecker{}), http.MethodGet, "/healthz", "", false)
		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})
}
