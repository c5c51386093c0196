package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tuanvumaihuynh/inventory-api/internal/event"
	"github.com/tuanvumaihuynh/inventory-api/internal/model"
	"github.com/tuanvumaihuynh/inventory-api/internal/repository"
	"github.com/tuanvumaihuynh/inventory-api/internal/storage/db"
	"github.com/tuanvumaihuynh/inventory-api/pkg/outbox"
)

type CreateProductParams struct {
	model.ProductFields
}

type UpdateProductParams struct {
	ID int64
	model.ProductFields
}

type ProductService interface {
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, bool, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	// UpdateProduct reports false without touching the store when no product
	// has the given id.
	UpdateProduct(ctx context.Context, params UpdateProductParams) (model.Product, bool, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
}

type productService struct {
	db            db.Transactor
	productRepo   repository.ProductRepository
	outboxMsgRepo repository.OutboxMsgRepository
}

// NewProductService creates the product service. When outboxMsgRepo is not nil
// every mutation also records a product event in the same transaction.
func NewProductService(
	db db.Transactor,
	productRepo repository.ProductRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
) ProductService {
	return &productService{
		db:            db,
		productRepo:   productRepo,
		outboxMsgRepo: outboxMsgRepo,
	}
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	var product model.Product

	if err := s.withEvents(ctx, func(db db.DB) error {
		var err error
		product, err = s.repo(db).CreateProduct(ctx, params.ProductFields)
		if err != nil {
			return fmt.Errorf("product repository create product: %w", err)
		}

		return s.recordEvent(ctx, db, event.TopicProductCreated, product.ID, event.NewProductChangedEvent(product))
	}); err != nil {
		return model.Product{}, err
	}

	return product, nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (model.Product, bool, error) {
	product, ok, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		return model.Product{}, false, fmt.Errorf("product repository get product by id: %w", err)
	}

	return product, ok, nil
}

func (s *productService) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.ListAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("product repository list all products: %w", err)
	}

	return products, nil
}

func (s *productService) UpdateProduct(ctx context.Context, params UpdateProductParams) (model.Product, bool, error) {
	var (
		product model.Product
		found   bool
	)

	if err := s.withEvents(ctx, func(db db.DB) error {
		repo := s.repo(db)

		exists, err := repo.ProductExists(ctx, params.ID)
		if err != nil {
			return fmt.Errorf("product repository product exists: %w", err)
		}
		if !exists {
			return nil
		}

		product, found, err = repo.UpdateProduct(ctx, params.ID, params.ProductFields)
		if err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}
		if !found {
			return nil
		}

		return s.recordEvent(ctx, db, event.TopicProductUpdated, product.ID, event.NewProductChangedEvent(product))
	}); err != nil {
		return model.Product{}, false, err
	}

	return product, found, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	var deleted bool

	if err := s.withEvents(ctx, func(db db.DB) error {
		var err error
		deleted, err = s.repo(db).DeleteProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository delete product: %w", err)
		}
		if !deleted {
			return nil
		}

		return s.recordEvent(ctx, db, event.TopicProductDeleted, id, event.ProductDeletedEvent{ProductID: id})
	}); err != nil {
		return false, err
	}

	return deleted, nil
}

func (s *productService) eventsEnabled() bool {
	return s.outboxMsgRepo != nil
}

// withEvents runs fn in a transaction when events are enabled, otherwise
// directly against the repository's own connection.
func (s *productService) withEvents(ctx context.Context, fn func(db db.DB) error) error {
	if !s.eventsEnabled() {
		return fn(nil)
	}

	if err := s.db.WithTx(ctx, fn); err != nil {
		return fmt.Errorf("db with tx: %w", err)
	}

	return nil
}

func (s *productService) repo(db db.DB) repository.ProductRepository {
	if db == nil {
		return s.productRepo
	}
	return s.productRepo.WithDB(db)
}

func (s *productService) recordEvent(ctx context.Context, db db.DB, topic string, productID int64, payload any) error {
	if !s.eventsEnabled() {
		return nil
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partitionKey := event.PartitionKey(productID)
	if err := s.outboxMsgRepo.
		WithDB(db).
		CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
			Topic:        topic,
			Headers:      outbox.BuildHeaders(ctx),
			Payload:      payloadBytes,
			PartitionKey: &partitionKey,
		}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}
