package geoip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolverEmptyPath(t *testing.T) {
	r, err := NewResolver("  ")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Nil(t, r.Lookup())
	assert.NoError(t, r.Close())
}

func TestNewResolverMissingFile(t *testing.T) {
	_, err := NewResolver(t.TempDir() + "/missing.mmdb")
	assert.Error(t, err)
}

func TestNilResolverUnavailable(t *testing.T) {
	var r *Resolver
	_, err := r.CountryCode("8.8.8.8")
	assert.ErrorIs(t, err, ErrUnavailable)
}
