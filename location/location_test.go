package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/geo"
)

func receive(t *testing.T, r *Resolver) Result {
	t.Helper()
	select {
	case res := <-r.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for location result")
		return Result{}
	}
}

func TestStaticProvider(t *testing.T) {
	p := NewStatic(config.LocationConfig{Enabled: true, Lat: 52.5, Lon: 13.4})
	got, err := p.CurrentLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 52.5, Lon: 13.4}, got)

	_, err = NewStatic(config.LocationConfig{}).CurrentLocation(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestResolverSuccess(t *testing.T) {
	r := NewResolver(NewStatic(config.LocationConfig{Enabled: true, Lat: 10, Lon: 20}), 0, nil)
	require.True(t, r.Resolve(context.Background()))

	res := receive(t, r)
	require.NoError(t, res.Err)
	assert.Equal(t, geo.Point{Lat: 10, Lon: 20}, res.Point)
}

func TestResolverProviderFailure(t *testing.T) {
	boom := errors.New("permission denied")
	r := NewResolver(ProviderFunc(func(context.Context) (geo.Point, error) {
		return geo.Point{}, boom
	}), 0, nil)
	r.Resolve(context.Background())

	res := receive(t, r)
	assert.ErrorIs(t, res.Err, boom)
}

func TestResolverNilProviderFailsOver(t *testing.T) {
	r := NewResolver(nil, 0, nil)
	r.Resolve(context.Background())
	assert.ErrorIs(t, receive(t, r).Err, ErrUnavailable)
}

func TestResolverTimeout(t *testing.T) {
	r := NewResolver(ProviderFunc(func(ctx context.Context) (geo.Point, error) {
		<-ctx.Done()
		return geo.Point{}, ctx.Err()
	}), 20*time.Millisecond, nil)
	r.Resolve(context.Background())
	assert.ErrorIs(t, receive(t, r).Err, context.DeadlineExceeded)
}

func TestResolverRejectsOutOfRange(t *testing.T) {
	r := NewResolver(ProviderFunc(func(context.Context) (geo.Point, error) {
		return geo.Point{Lat: 120, Lon: 0}, nil
	}), 0, nil)
	r.Resolve(context.Background())
	assert.ErrorIs(t, receive(t, r).Err, ErrUnavailable)
}

func TestResolverSingleFlight(t *testing.T) {
	release := make(chan struct{})
	r := NewResolver(ProviderFunc(func(context.Context) (geo.Point, error) {
		<-release
		return geo.Point{Lat: 1, Lon: 2}, nil
	}), time.Second, nil)

	require.True(t, r.Resolve(context.Background()))
	assert.False(t, r.Resolve(context.Background()), "second lookup should be refused while the first runs")
	close(release)
	receive(t, r)
}
