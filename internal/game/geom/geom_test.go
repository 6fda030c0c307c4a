package geom_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/geom"
)

var testArena = geom.Arena{Width: 400, Height: 200, Depth: 300}

func TestVec3_Dist_Is3D(t *testing.T) {
	a := geom.V(0, 0, 0)
	b := geom.V(3, 4, 12)
	assert.InDelta(t, 13.0, a.Dist(b), 1e-9)
}

func TestVec3_Normalize_Zero(t *testing.T) {
	assert.Equal(t, geom.Vec3{}, geom.Vec3{}.Normalize())
}

func TestVec3_Cross(t *testing.T) {
	x := geom.V(1, 0, 0)
	y := geom.V(0, 1, 0)
	assert.Equal(t, geom.V(0, 0, 1), x.Cross(y))
}

func TestArena_Clamp_NonFinite(t *testing.T) {
	p := geom.V(math.Inf(1), math.NaN(), math.Inf(-1))
	got := testArena.Clamp(p, geom.V(10, 20, 30))
	assert.Equal(t, geom.V(400, 20, 0), got)
}

func TestArena_Nearest(t *testing.T) {
	assert.Equal(t, geom.SurfaceFloor, testArena.Nearest(geom.V(200, 1, 150)))
	assert.Equal(t, geom.SurfaceEast, testArena.Nearest(geom.V(398, 100, 150)))
	assert.Equal(t, geom.SurfaceCeiling, testArena.Nearest(geom.V(200, 1, 150), geom.SurfaceFloor, geom.SurfaceNorth, geom.SurfaceSouth))
}

func TestArena_SnapAndProject(t *testing.T) {
	p := testArena.Snap(geom.V(10, 50, 20), geom.SurfaceEast)
	assert.Equal(t, 400.0, p.X)
	v := geom.ProjectOnto(geom.V(5, 6, 7), geom.SurfaceEast)
	assert.Equal(t, geom.V(0, 6, 7), v)
}

func TestArena_Validate(t *testing.T) {
	assert.NoError(t, testArena.Validate())
	assert.Error(t, geom.Arena{Width: 0, Height: 1, Depth: 1}.Validate())
	assert.Error(t, geom.Arena{Width: math.NaN(), Height: 1, Depth: 1}.Validate())
}

func TestProperty_Clamp_AlwaysInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := geom.V(
			rapid.Float64().Draw(rt, "x"),
			rapid.Float64().Draw(rt, "y"),
			rapid.Float64().Draw(rt, "z"),
		)
		got := testArena.Clamp(p, testArena.Center())
		assert.True(rt, testArena.Contains(got), "clamped %v out of bounds", got)
	})
}

func TestProperty_ProjectOnto_RemovesNormal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := geom.V(
			rapid.Float64Range(-100, 100).Draw(rt, "x"),
			rapid.Float64Range(-100, 100).Draw(rt, "y"),
			rapid.Float64Range(-100, 100).Draw(rt, "z"),
		)
		s := rapid.SampledFrom(geom.Surfaces).Draw(rt, "surface")
		assert.InDelta(rt, 0, geom.ProjectOnto(v, s).Dot(geom.Normal(s)), 1e-9)
	})
}

func TestSurface_OppositeAndAdjacent(t *testing.T) {
	for _, s := range geom.Surfaces {
		assert.Equal(t, s, geom.Opposite(geom.Opposite(s)))
		assert.False(t, geom.Adjacent(s, s))
		assert.False(t, geom.Adjacent(s, geom.Opposite(s)))
	}
	assert.True(t, geom.Adjacent(geom.SurfaceFloor, geom.SurfaceNorth))
	assert.True(t, geom.Adjacent(geom.SurfaceWest, geom.SurfaceSouth))
	assert.False(t, geom.Adjacent(geom.SurfaceNone, geom.SurfaceFloor))
}
