package zerror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/inventory-api/pkg/zerror"
)

func TestZError(t *testing.T) {
	notFound := zerror.NewNotFound("PRODUCT_NOT_FOUND", "product not found")

	t.Run("Should match predefined error after wrapping", func(t *testing.T) {
		cause := errors.New("no rows")
		err := fmt.Errorf("get product: %w", notFound.WrapParent(cause))

		assert.ErrorIs(t, err, notFound)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should keep code and status when message changes", func(t *testing.T) {
		err := notFound.WithMsg("product %d not found", 7)

		assert.Equal(t, "product 7 not found", err.Msg())
		assert.Equal(t, "PRODUCT_NOT_FOUND", err.Code())
		assert.Equal(t, zerror.StatusNotFound, err.Status())
		assert.ErrorIs(t, err, notFound)
	})

	t.Run("Should not match a different code", func(t *testing.T) {
		other := zerror.NewNotFound("USER_NOT_FOUND", "user not found")
		assert.NotErrorIs(t, other, notFound)
	})

	t.Run("Should extract with errors.As", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", notFound)

		var zErr zerror.ZError
		assert.True(t, errors.As(err, &zErr))
		assert.Equal(t, "NOT_FOUND", zErr.Status().String())
	})
}
