package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/medina/medina_core/internal/graph"
	"github.com/medina/medina_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocator struct {
	stops []models.Stop
	err   error

	gotMinLat, gotMinLon, gotMaxLat, gotMaxLon float64
}

func (f *fakeLocator) StopsInBox(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]models.Stop, error) {
	f.gotMinLat, f.gotMinLon, f.gotMaxLat, f.gotMaxLon = minLat, minLon, maxLat, maxLon
	return f.stops, f.err
}

func TestResolverNearby(t *testing.T) {
	g := lineGraph()
	locator := &fakeLocator{stops: []models.Stop{
		{ID: 100}, // known stop
		{ID: 999}, // not in the graph
	}}
	resolver := NewResolver(locator, g)

	stops, err := resolver.Nearby(context.Background(), 33.59, -7.62, 0)
	require.NoError(t, err)

	assert.Equal(t, map[graph.StopID]int{0: 0}, stops)

	// Box is ±0.01° around the coordinate
	assert.InDelta(t, 33.58, locator.gotMinLat, 1e-9)
	assert.InDelta(t, -7.63, locator.gotMinLon, 1e-9)
	assert.InDelta(t, 33.60, locator.gotMaxLat, 1e-9)
	assert.InDelta(t, -7.61, locator.gotMaxLon, 1e-9)
}

func TestResolverNearbyEmpty(t *testing.T) {
	resolver := NewResolver(&fakeLocator{}, lineGraph())

	stops, err := resolver.Nearby(context.Background(), 0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, stops)
}

func TestResolverNearbyPropagatesStoreError(t *testing.T) {
	locator := &fakeLocator{err: errors.New("store unavailable")}
	resolver := NewResolver(locator, lineGraph())

	_, err := resolver.Nearby(context.Background(), 0, 0, 0)
	assert.Error(t, err)
}

func TestResolverInitialWalkApplied(t *testing.T) {
	locator := &fakeLocator{stops: []models.Stop{{ID: 100}, {ID: 101}}}
	resolver := NewResolver(locator, lineGraph())

	stops, err := resolver.Nearby(context.Background(), 33.59, -7.62, 120)
	require.NoError(t, err)
	assert.Equal(t, map[graph.StopID]int{0: 120, 1: 120}, stops)
}
