package event

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/inventory-api/internal/model"
)

const (
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicProductDeleted = "product.deleted"
)

// ProductTopics lists every topic the product events are published to.
var ProductTopics = []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}

// ProductChangedEvent is the payload of product.created and product.updated.
type ProductChangedEvent struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Category  string          `json:"category"`
}

// ProductDeletedEvent is the payload of product.deleted.
type ProductDeletedEvent struct {
	ProductID int64 `json:"product_id"`
}

func NewProductChangedEvent(p model.Product) ProductChangedEvent {
	return ProductChangedEvent{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  p.Quantity,
		Category:  p.Category,
	}
}

// PartitionKey keeps all events of one product on the same partition.
func PartitionKey(productID int64) string {
	return strconv.FormatInt(productID, 10)
}

func (s *Service) handleProductChangedEvent(ctx context.Context, topic string, ev ProductChangedEvent) error {
	s.logger.InfoContext(ctx, "handling product changed event",
		slog.String("topic", topic),
		slog.Int64("product_id", ev.ProductID),
		slog.String("price", ev.Price.StringFixed(2)),
		slog.Int("quantity", ev.Quantity),
	)
	return nil
}

func (s *Service) handleProductDeletedEvent(ctx context.Context, ev ProductDeletedEvent) error {
	s.logger.InfoContext(ctx, "handling product deleted event", slog.Int64("product_id", ev.ProductID))
	return nil
}
