package apicontract_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicontract "github.com/tuanvumaihuynh/inventory-api/api-contract"
)

func TestLoad(t *testing.T) {
	doc, err := apicontract.Load(context.Background())
	require.NoError(t, err)

	t.Run("Should describe every product operation", func(t *testing.T) {
		collection := doc.Paths.Find("/api/products")
		require.NotNil(t, collection)
		assert.NotNil(t, collection.GetOperation(http.MethodGet))
		assert.NotNil(t, collection.GetOperation(http.MethodPost))

		item := doc.Paths.Find("/api/products/{id}")
		require.NotNil(t, item)
		assert.NotNil(t, item.GetOperation(http.MethodGet))
		assert.NotNil(t, item.GetOperation(http.MethodPut))
		assert.NotNil(t, item.GetOperation(http.MethodDelete))
	})

	t.Run("Should require bearer auth by default", func(t *testing.T) {
		require.NotNil(t, doc.Components.SecuritySchemes["bearerAuth"])
		assert.Equal(t, "bearer", doc.Components.SecuritySchemes["bearerAuth"].Value.Scheme)
	})
}
