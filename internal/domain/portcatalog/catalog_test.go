package portcatalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(Config{DefaultLimit: 20, MaxLimit: 50})
	require.NoError(t, err)
	return c
}

func TestEmbeddedCatalogIsValid(t *testing.T) {
	c := newCatalog(t)
	require.Greater(t, c.Len(), 50)

	caribbean := c.Search("", "Caribbean", 50)
	require.Greater(t, len(caribbean), 10)

	regions := c.Regions()
	require.Greater(t, len(regions), 5)
	require.IsIncreasing(t, regions)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	c := newCatalog(t)
	upper := c.Search("NASSAU", "", 0)
	lower := c.Search("nassau", "", 0)
	require.NotEmpty(t, upper)
	require.Equal(t, upper, lower)
}

func TestSearchMatchesCountry(t *testing.T) {
	c := newCatalog(t)
	for _, p := range c.Search("spain", "", 0) {
		require.True(t, strings.Contains(strings.ToLower(p.Country), "spain") ||
			strings.Contains(strings.ToLower(p.Name), "spain"))
	}
	require.NotEmpty(t, c.Search("spain", "", 0))
}

func TestSearchRegionFilter(t *testing.T) {
	c := newCatalog(t)
	for _, p := range c.Search("", "Caribbean", 0) {
		require.Equal(t, "Caribbean", p.Region)
	}
	require.Empty(t, c.Search("barcelona", "Caribbean", 0))
}

func TestSearchLimits(t *testing.T) {
	c := newCatalog(t)
	require.Len(t, c.Search("", "", 0), 20)
	require.Len(t, c.Search("", "", 5), 5)
	require.Len(t, c.Search("", "", 1000), 50)
	require.Empty(t, c.Search("nonexistentport12345", "", 0))
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	_, err := Parse([]byte("- {name: X, region: R, lat: 200, lng: 0}"), Config{})
	require.Error(t, err)

	_, err = Parse([]byte("- {name: '', region: R}"), Config{})
	require.Error(t, err)

	_, err = Parse([]byte("not: [valid"), Config{})
	require.Error(t, err)
}
