package service_test

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/inventory-api/internal/event"
	"github.com/tuanvumaihuynh/inventory-api/internal/model"
	"github.com/tuanvumaihuynh/inventory-api/internal/repository"
	"github.com/tuanvumaihuynh/inventory-api/internal/service"
	"github.com/tuanvumaihuynh/inventory-api/internal/storage/db"
)

type fakeTransactor struct {
	calls int
}

func (t *fakeTransactor) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	t.calls++
	return txFunc(nil)
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[int64]model.Product
	nextID   int64
	writes   int
	now      time.Time
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products: map[int64]model.Product{},
		nextID:   1,
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeProductRepo) tick() time.Time {
	r.now = r.now.Add(time.Second)
	return r.now
}

func (r *fakeProductRepo) WithDB(db.DB) repository.ProductRepository { return r }

func (r *fakeProductRepo) ListAllProducts(context.Context) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	products := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b model.Product) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return products, nil
}

func (r *fakeProductRepo) GetProductByID(_ context.Context, id int64) (model.Product, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	return p, ok, nil
}

func (r *fakeProductRepo) CreateProduct(_ context.Context, fields model.ProductFields) (model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	p := model.Product{
		ID:          r.nextID,
		Name:        fields.Name,
		Description: fields.Description,
		Price:       fields.Price,
		Quantity:    fields.Quantity,
		Category:    fields.Category,
		CreatedAt:   r.tick(),
	}
	r.products[p.ID] = p
	r.nextID++
	return p, nil
}

func (r *fakeProductRepo) UpdateProduct(_ context.Context, id int64, fields model.ProductFields) (model.Product, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	p, ok := r.products[id]
	if !ok {
		return model.Product{}, false, nil
	}
	now := r.tick()
	p.Name, p.Description, p.Price, p.Quantity, p.Category = fields.Name, fields.Description, fields.Price, fields.Quantity, fields.Category
	p.UpdatedAt = &now
	r.products[id] = p
	return p, true, nil
}

func (r *fakeProductRepo) DeleteProduct(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if _, ok := r.products[id]; !ok {
		return false, nil
	}
	delete(r.products, id)
	return true, nil
}

func (r *fakeProductRepo) ProductExists(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.products[id]
	return ok, nil
}

type fakeOutboxRepo struct {
	msgs []repository.CreateOutboxMsgParams
}

func (r *fakeOutboxRepo) WithDB(db.DB) repository.OutboxMsgRepository { return r }

func (r *fakeOutboxRepo) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	r.msgs = append(r.msgs, params)
	return nil
}

func (r *fakeOutboxRepo) ListUnprocessedOutboxMsgs(context.Context, repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) BulkUpdateOutboxMsgs(context.Context, repository.BulkUpdateOutboxMsgsParams) error {
	return nil
}

func widgetFields() model.ProductFields {
	return model.ProductFields{
		Name:        "Widget",
		Description: "A small widget",
		Price:       decimal.RequireFromString("9.99"),
		Quantity:    5,
		Category:    "Tools",
	}
}

func TestProductService(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create widget with generated id and no update time", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := service.NewProductService(&fakeTransactor{}, repo, nil)

		product, err := svc.CreateProduct(ctx, service.CreateProductParams{ProductFields: widgetFields()})
		require.NoError(t, err)

		assert.NotZero(t, product.ID)
		assert.False(t, product.CreatedAt.IsZero())
		assert.Nil(t, product.UpdatedAt)
		assert.Equal(t, "Widget", product.Name)
		assert.Equal(t, "A small widget", product.Description)
		assert.True(t, decimal.RequireFromString("9.99").Equal(product.Price))
		assert.Equal(t, 5, product.Quantity)
		assert.Equal(t, "Tools", product.Category)
	})

	t.Run("Should round trip create and get", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := service.NewProductService(&fakeTransactor{}, repo, nil)

		created, err := svc.CreateProduct(ctx, service.CreateProductParams{ProductFields: widgetFields()})
		require.NoError(t, err)

		got, ok, err := svc.GetProduct(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, created, got)
	})

	t.Run("Should report absence for unknown id", func(t *testing.T) {
		svc := service.NewProductService(&fakeTransactor{}, newFakeProductRepo(), nil)

		_, ok, err := svc.GetProduct(ctx, 42)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should not write when updating unknown id", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := service.NewProductService(&fakeTransactor{}, repo, nil)

		_, ok, err := svc.UpdateProduct(ctx, service.UpdateProductParams{ID: 999, ProductFields: widgetFields()})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, repo.writes)

		products, err := svc.ListProducts(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("Should overwrite fields and set update time", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := service.NewProductService(&fakeTransactor{}, repo, nil)

		created, err := svc.CreateProduct(ctx, service.CreateProductParams{ProductFields: widgetFields()})
		require.NoError(t, err)

		fields := widgetFields()
		fields.Name = "Gadget"
		fields.Quantity = 7
		updated, ok, err := svc.UpdateProduct(ctx, service.UpdateProductParams{ID: created.ID, ProductFields: fields})
		require.NoError(t, err)
		require.True(t, ok)

		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Gadget", updated.Name)
		assert.Equal(t, 7, updated.Quantity)
		require.NotNil(t, updated.UpdatedAt)
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
	})

	t.Run("Should delete once", func(t *testing.T) {
		svc := service.NewProductService(&fakeTransactor{}, newFakeProductRepo(), nil)

		created, err := svc.CreateProduct(ctx, service.CreateProductParams{ProductFields: widgetFields()})
		require.NoError(t, err)

		deleted, err := svc.DeleteProduct(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = svc.DeleteProduct(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Should list newest first", func(t *testing.T) {
		svc := service.NewProductService(&fakeTransactor{}, newFakeProductRepo(), nil)

		var ids []int64
		for range 3 {
			p, err := svc.CreateProduct(ctx, service.CreateProductParams{ProductFields: widgetFields()})
			require.NoError(t, err)
			ids = append(ids, p.ID)
		}

		products, err := svc.ListProducts(ctx)
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{products[0].ID, products[1].ID, products[2].ID})
	})

	t.Run("Should not open transactions when events are disabled", func(t *testing.T) {
		tx := &fakeTransactor{}
		svc := service.NewProductService(tx, newFakeProductRepo(), nil)

		_, err := svc.CreateProduct(ctx, service.CreateProductParams{ProductFields: widgetFields()})
		require.NoError(t, err)
		assert.Zero(t, tx.calls)
	})
}

func TestProductServiceEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("Should record an event per successful mutation", func(t *testing.T) {
		tx := &fakeTransactor{}
		outboxRepo := &fakeOutboxRepo{}
		svc := service.NewProductService(tx, newFakeProductRepo(), outboxRepo)

		created, err := svc.CreateProduct(ctx, service.CreateProductParams{ProductFields: widgetFields()})
		require.NoError(t, err)
		_, _, err = svc.UpdateProduct(ctx, service.UpdateProductParams{ID: created.ID, ProductFields: widgetFields()})
		require.NoError(t, err)
		_, err = svc.DeleteProduct(ctx, created.ID)
		require.NoError(t, err)

		assert.Equal(t, 3, tx.calls)
		require.Len(t, outboxRepo.msgs, 3)
		assert.Equal(t, event.TopicProductCreated, outboxRepo.msgs[0].Topic)
		assert.Equal(t, event.TopicProductUpdated, outboxRepo.msgs[1].Topic)
		assert.Equal(t, event.TopicProductDeleted, outboxRepo.msgs[2].Topic)

		for _, msg := range outboxRepo.msgs {
			require.NotNil(t, msg.PartitionKey)
			assert.Equal(t, event.PartitionKey(created.ID), *msg.PartitionKey)
		}

		var ev event.ProductChangedEvent
		require.NoError(t, json.Unmarshal(outboxRepo.msgs[0].Payload, &ev))
		assert.Equal(t, created.ID, ev.ProductID)
		assert.Equal(t, "Widget", ev.Name)
		assert.True(t, created.Price.Equal(ev.Price))
	})

	t.Run("Should not record events for missing products", func(t *testing.T) {
		outboxRepo := &fakeOutboxRepo{}
		svc := service.NewProductService(&fakeTransactor{}, newFakeProductRepo(), outboxRepo)

		_, ok, err := svc.UpdateProduct(ctx, service.UpdateProductParams{ID: 999, ProductFields: widgetFields()})
		require.NoError(t, err)
		assert.False(t, ok)

		deleted, err := svc.DeleteProduct(ctx, 999)
		require.NoError(t, err)
		assert.False(t, deleted)

		assert.Empty(t, outboxRepo.msgs)
	})
}
