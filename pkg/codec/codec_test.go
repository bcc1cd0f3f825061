package codec

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightbasket/catalogcache/pkg/models"
)

func TestEncodeDecodeProductRoundTrip(t *testing.T) {
	p := models.Product{
		ID:       1,
		Name:     "Widget",
		Price:    decimal.NewFromFloat(19.99),
		Category: "hardware",
		Active:   true,
	}

	data, err := Encode(p)
	require.NoError(t, err)

	var out models.Product
	require.NoError(t, Decode(data, &out))
	assert.True(t, p.Price.Equal(out.Price))
	assert.Equal(t, p.ID, out.ID)
	assert.Equal(t, p.Name, out.Name)
	assert.Equal(t, p.Category, out.Category)
	assert.Equal(t, p.Active, out.Active)
}

func TestEncodeDecodeProductSliceRoundTrip(t *testing.T) {
	in := []models.Product{
		{ID: 1, Name: "A", Price: decimal.NewFromInt(1)},
		{ID: 2, Name: "B", Price: decimal.NewFromInt(2)},
	}

	data, err := Encode(in)
	require.NoError(t, err)

	var out []models.Product
	require.NoError(t, Decode(data, &out))
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, int64(2), out[1].ID)
}

func TestEncodeDecodeStringSliceRoundTrip(t *testing.T) {
	in := []string{"electronics", "hardware", "garden"}
	data, err := Encode(in)
	require.NoError(t, err)

	var out []string
	require.NoError(t, Decode(data, &out))
	assert.Equal(t, in, out)
}

// evolvedProduct simulates a future schema with an added field; decoding its
// bytes into the current models.Product must not fail, demonstrating forward
// compatibility of the wire format.
type evolvedProduct struct {
	ID       int64           `msgpack:"id"`
	Name     string          `msgpack:"name"`
	Price    decimal.Decimal `msgpack:"price"`
	Category string          `msgpack:"category"`
	Active   bool            `msgpack:"active"`
	Tags     []string        `msgpack:"tags"`
}

func TestDecodeToleratesUnknownFutureFields(t *testing.T) {
	ev := evolvedProduct{
		ID:    2,
		Name:  "Gadget",
		Price: decimal.NewFromInt(5),
		Tags:  []string{"new", "shiny"},
	}
	data, err := Encode(ev)
	require.NoError(t, err)

	var out models.Product
	require.NoError(t, Decode(data, &out))
	assert.Equal(t, int64(2), out.ID)
	assert.Equal(t, "Gadget", out.Name)
}

func TestDecodeEmptyPayloadErrors(t *testing.T) {
	var out models.Product
	err := Decode(nil, &out)
	assert.Error(t, err)
}
