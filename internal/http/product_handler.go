package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/inventory-api/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-api/internal/model"
	"github.com/tuanvumaihuynh/inventory-api/internal/service"
	"github.com/tuanvumaihuynh/inventory-api/pkg/validator"
)

const maxBodyBytes = 1 << 20

type productRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"required,max=1000"`
	Price       decimal.Decimal `json:"price" validate:"decimal_abs_lt=16"`
	Quantity    int             `json:"quantity" validate:"min=-2147483648,max=2147483647"`
	Category    string          `json:"category" validate:"max=100"`
}

func (req productRequest) fields() model.ProductFields {
	return model.ProductFields{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Category:    req.Category,
	}
}

type productResponse struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Quantity    int         `json:"quantity"`
	Category    string      `json:"category"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   *time.Time  `json:"updatedAt"`
}

func newProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       json.Number(p.Price.StringFixed(2)),
		Quantity:    p.Quantity,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type productHandler struct {
	productSvc service.ProductService
	validator  validator.Validator
}

func newProductHandler(productSvc service.ProductService) *productHandler {
	return &productHandler{
		productSvc: productSvc,
		validator:  validator.NewDefaultValidator(),
	}
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	products, err := h.productSvc.ListProducts(r.Context())
	if err != nil {
		return fmt.Errorf("product service list products: %w", err)
	}

	items := make([]productResponse, 0, len(products))
	for _, product := range products {
		items = append(items, newProductResponse(product))
	}

	return writeJSON(w, http.StatusOK, items)
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := productID(r)
	if err != nil {
		return err
	}

	product, ok, err := h.productSvc.GetProduct(r.Context(), id)
	if err != nil {
		return fmt.Errorf("product service get product: %w", err)
	}
	if !ok {
		return apperr.ProductNotFoundErr.WithMsg("product %d not found", id)
	}

	return writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	req, err := h.decodeProductRequest(w, r)
	if err != nil {
		return err
	}

	product, err := h.productSvc.CreateProduct(r.Context(), service.CreateProductParams{
		ProductFields: req.fields(),
	})
	if err != nil {
		return fmt.Errorf("product service create product: %w", err)
	}

	w.Header().Set("Location", fmt.Sprintf("/api/products/%d", product.ID))
	return writeJSON(w, http.StatusCreated, newProductResponse(product))
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := productID(r)
	if err != nil {
		return err
	}

	req, err := h.decodeProductRequest(w, r)
	if err != nil {
		return err
	}

	product, ok, err := h.productSvc.UpdateProduct(r.Context(), service.UpdateProductParams{
		ID:            id,
		ProductFields: req.fields(),
	})
	if err != nil {
		return fmt.Errorf("product service update product: %w", err)
	}
	if !ok {
		return apperr.ProductNotFoundErr.WithMsg("product %d not found", id)
	}

	return writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := productID(r)
	if err != nil {
		return err
	}

	deleted, err := h.productSvc.DeleteProduct(r.Context(), id)
	if err != nil {
		return fmt.Errorf("product service delete product: %w", err)
	}
	if !deleted {
		return apperr.ProductNotFoundErr.WithMsg("product %d not found", id)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func productID(r *http.Request) (int64, error) {
	var id int64
	if err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	}); err != nil {
		return 0, apperr.ValidationErr.WrapParent(err).WithMsg("invalid format for parameter id: must be an integer")
	}

	return id, nil
}

func (h *productHandler) decodeProductRequest(w http.ResponseWriter, r *http.Request) (productRequest, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var req productRequest
	if err := dec.Decode(&req); err != nil {
		return productRequest{}, apperr.InvalidRequestBodyErr.WrapParent(err).WithMsg("%s", decodeErrorMessage(err))
	}
	if dec.More() {
		return productRequest{}, apperr.InvalidRequestBodyErr.WithMsg("request body must contain a single JSON object")
	}

	if err := h.validator.Validate(req); err != nil {
		return productRequest{}, apperr.ValidationErr.WrapParent(err)
	}

	return req, nil
}

func decodeErrorMessage(err error) string {
	var (
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.Is(err, io.EOF):
		return "request body must not be empty"
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "request body contains malformed JSON"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	case errors.As(err, &maxBytesErr):
		return fmt.Sprintf("request body must not be larger than %d bytes", maxBytesErr.Limit)
	default:
		// unknown field errors carry the field name in their message
		return err.Error()
	}
}
