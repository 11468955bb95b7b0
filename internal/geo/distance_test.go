package geo

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{
			name: "identical points",
			a:    Point{Lat: 12.9716, Lng: 77.5946},
			b:    Point{Lat: 12.9716, Lng: 77.5946},
			want: 0,
			tol:  0,
		},
		{
			name: "one degree along the equator",
			a:    Point{Lat: 0, Lng: 0},
			b:    Point{Lat: 0, Lng: 1},
			want: EarthRadiusMeters * math.Pi / 180,
			tol:  1e-6,
		},
		{
			name: "bangalore neighbours",
			a:    Point{Lat: 12.9716, Lng: 77.5946},
			b:    Point{Lat: 12.9716, Lng: 77.5950},
			want: 43.34,
			tol:  0.05,
		},
		{
			name: "pole to pole",
			a:    Point{Lat: 90, Lng: 0},
			b:    Point{Lat: -90, Lng: 0},
			want: EarthRadiusMeters * math.Pi,
			tol:  1e-3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, tt.tol)
		})
	}
}

func TestDistanceBoundaryInputsAreFinite(t *testing.T) {
	points := []Point{
		{Lat: 90, Lng: 180},
		{Lat: -90, Lng: -180},
		{Lat: 0, Lng: 180},
		{Lat: 0, Lng: -180},
		{Lat: 0, Lng: 0},
		{Lat: 45, Lng: 0},
		{Lat: -45, Lng: 180},
	}

	for _, a := range points {
		for _, b := range points {
			d := Distance(a, b)
			require.False(t, math.IsNaN(d), "NaN for %v -> %v", a, b)
			require.False(t, math.IsInf(d, 0), "Inf for %v -> %v", a, b)
			require.GreaterOrEqual(t, d, 0.0)
			require.LessOrEqual(t, d, EarthRadiusMeters*math.Pi+1e-6)
		}
	}
}

func TestDistanceAntipodal(t *testing.T) {
	d := Distance(Point{Lat: 10, Lng: 20}, Point{Lat: -10, Lng: -160})
	assert.InDelta(t, EarthRadiusMeters*math.Pi, d, 1e-3)
}

func TestDistanceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	lat := gen.Float64Range(-90, 90)
	lng := gen.Float64Range(-180, 180)

	properties.Property("distance is symmetric", prop.ForAll(
		func(lat1, lng1, lat2, lng2 float64) bool {
			a := Point{Lat: lat1, Lng: lng1}
			b := Point{Lat: lat2, Lng: lng2}
			ab := Distance(a, b)
			ba := Distance(b, a)
			if ab == 0 && ba == 0 {
				return true
			}
			return math.Abs(ab-ba) <= 1e-6*math.Max(ab, ba)
		},
		lat, lng, lat, lng,
	))

	properties.Property("distance to self is zero", prop.ForAll(
		func(lat1, lng1 float64) bool {
			p := Point{Lat: lat1, Lng: lng1}
			return Distance(p, p) == 0
		},
		lat, lng,
	))

	properties.Property("distance is non-negative and finite", prop.ForAll(
		func(lat1, lng1, lat2, lng2 float64) bool {
			d := Distance(Point{Lat: lat1, Lng: lng1}, Point{Lat: lat2, Lng: lng2})
			return d >= 0 && !math.IsNaN(d) && !math.IsInf(d, 0)
		},
		lat, lng, lat, lng,
	))

	properties.TestingRun(t)
}

func TestPointValidate(t *testing.T) {
	require.NoError(t, Point{Lat: 90, Lng: -180}.Validate())
	require.NoError(t, Point{Lat: -90, Lng: 180}.Validate())

	require.Error(t, Point{Lat: 90.0001, Lng: 0}.Validate())
	require.Error(t, Point{Lat: 0, Lng: -180.5}.Validate())
	require.Error(t, Point{Lat: math.NaN(), Lng: 0}.Validate())
	require.Error(t, Point{Lat: 0, Lng: math.Inf(1)}.Validate())
}

func TestPointIsUnset(t *testing.T) {
	assert.True(t, Point{}.IsUnset())
	assert.False(t, Point{Lat: 0, Lng: 0.0001}.IsUnset())
}

func TestLatitudeBand(t *testing.T) {
	assert.Equal(t, int64(12971), LatitudeBand(12.9716))
	assert.Equal(t, int64(-1), LatitudeBand(-0.0001))
	assert.Equal(t, int64(0), LatitudeBand(0))

	// two points closer than 50 m never differ by more than one band
	a := Point{Lat: 12.97199, Lng: 77.5946}
	b := Point{Lat: 12.97201, Lng: 77.5946}
	require.Less(t, Distance(a, b), 50.0)
	diff := LatitudeBand(b.Lat) - LatitudeBand(a.Lat)
	assert.LessOrEqual(t, diff, int64(1))
}
