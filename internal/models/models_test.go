package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippingAddressRoundTrip(t *testing.T) {
	addr := ShippingAddress{Street: "1 Main St", City: "Springfield", Zip: "12345", Country: "US"}

	value, err := addr.Value()
	require.NoError(t, err)

	var scanned ShippingAddress
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, addr, scanned)
}

func TestShippingAddressScanNil(t *testing.T) {
	scanned := ShippingAddress{Street: "stale"}
	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, ShippingAddress{}, scanned)
}

func TestShippingAddressScanUnsupported(t *testing.T) {
	var scanned ShippingAddress
	assert.Error(t, scanned.Scan(42))
}
