package geom

import (
	"fmt"
	"math"
)

// Surface identifies an arena boundary plane a wallcrawler can attach to.
// The zero value SurfaceNone means the fighter is not attached.
type Surface int

const (
	SurfaceNone Surface = iota
	SurfaceFloor
	SurfaceCeiling
	SurfaceNorth // Z = 0
	SurfaceSouth // Z = Depth
	SurfaceWest  // X = 0
	SurfaceEast  // X = Width
)

// Surfaces lists every attachable surface in a fixed order.
var Surfaces = []Surface{SurfaceFloor, SurfaceCeiling, SurfaceNorth, SurfaceSouth, SurfaceWest, SurfaceEast}

// String returns the wire name of the surface.
func (s Surface) String() string {
	switch s {
	case SurfaceFloor:
		return "floor"
	case SurfaceCeiling:
		return "ceiling"
	case SurfaceNorth:
		return "wall-n"
	case SurfaceSouth:
		return "wall-s"
	case SurfaceWest:
		return "wall-w"
	case SurfaceEast:
		return "wall-e"
	default:
		return "none"
	}
}

// IsWall reports whether s is one of the four vertical walls.
func (s Surface) IsWall() bool {
	return s == SurfaceNorth || s == SurfaceSouth || s == SurfaceWest || s == SurfaceEast
}

// Arena is the axis-aligned box [0,Width]×[0,Height]×[0,Depth].
type Arena struct {
	Width  float64 `mapstructure:"width" yaml:"width"`
	Height float64 `mapstructure:"height" yaml:"height"`
	Depth  float64 `mapstructure:"depth" yaml:"depth"`
}

// Validate checks that every dimension is positive and finite.
//
// Postcondition: Returns nil iff Width, Height and Depth are all > 0 and finite.
func (a Arena) Validate() error {
	if !(a.Width > 0) || !(a.Height > 0) || !(a.Depth > 0) ||
		math.IsInf(a.Width, 0) || math.IsInf(a.Height, 0) || math.IsInf(a.Depth, 0) {
		return fmt.Errorf("arena dimensions must be positive and finite, got %gx%gx%g", a.Width, a.Height, a.Depth)
	}
	return nil
}

// Center returns the midpoint of the floor plane.
func (a Arena) Center() Vec3 { return Vec3{X: a.Width / 2, Z: a.Depth / 2} }

// Contains reports whether p lies inside the closed arena box.
func (a Arena) Contains(p Vec3) bool {
	return p.X >= 0 && p.X <= a.Width && p.Y >= 0 && p.Y <= a.Height && p.Z >= 0 && p.Z <= a.Depth
}

// Clamp returns p with every component clamped into the arena bounds.
// Non-finite components are clamped too: +Inf maps to the upper bound and
// -Inf to the lower bound. NaN components are replaced with fallback's.
//
// Postcondition: a.Contains(result) is true whenever fallback is finite.
func (a Arena) Clamp(p, fallback Vec3) Vec3 {
	return Vec3{
		X: clampAxis(p.X, fallback.X, a.Width),
		Y: clampAxis(p.Y, fallback.Y, a.Height),
		Z: clampAxis(p.Z, fallback.Z, a.Depth),
	}
}

func clampAxis(v, fallback, max float64) float64 {
	if math.IsNaN(v) {
		v = fallback
		if math.IsNaN(v) {
			v = max / 2
		}
	}
	return Clamp(v, 0, max)
}

// DistanceTo returns the distance from p to the plane of surface s.
func (a Arena) DistanceTo(p Vec3, s Surface) float64 {
	switch s {
	case SurfaceFloor:
		return p.Y
	case SurfaceCeiling:
		return a.Height - p.Y
	case SurfaceNorth:
		return p.Z
	case SurfaceSouth:
		return a.Depth - p.Z
	case SurfaceWest:
		return p.X
	case SurfaceEast:
		return a.Width - p.X
	default:
		return math.Inf(1)
	}
}

// Nearest returns the surface closest to p, skipping any listed in exclude.
// Ties resolve in Surfaces order so the choice is deterministic.
func (a Arena) Nearest(p Vec3, exclude ...Surface) Surface {
	best := SurfaceNone
	bestDist := math.Inf(1)
	for _, s := range Surfaces {
		skip := false
		for _, ex := range exclude {
			if s == ex {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if d := a.DistanceTo(p, s); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}

// Normal returns the inward-facing unit normal of surface s.
func Normal(s Surface) Vec3 {
	switch s {
	case SurfaceFloor:
		return Vec3{Y: 1}
	case SurfaceCeiling:
		return Vec3{Y: -1}
	case SurfaceNorth:
		return Vec3{Z: 1}
	case SurfaceSouth:
		return Vec3{Z: -1}
	case SurfaceWest:
		return Vec3{X: 1}
	case SurfaceEast:
		return Vec3{X: -1}
	default:
		return Vec3{}
	}
}

// Snap moves p onto the plane of surface s.
func (a Arena) Snap(p Vec3, s Surface) Vec3 {
	switch s {
	case SurfaceFloor:
		p.Y = 0
	case SurfaceCeiling:
		p.Y = a.Height
	case SurfaceNorth:
		p.Z = 0
	case SurfaceSouth:
		p.Z = a.Depth
	case SurfaceWest:
		p.X = 0
	case SurfaceEast:
		p.X = a.Width
	}
	return p
}

// ProjectOnto removes the component of v along the normal of s, leaving the
// in-plane part.
func ProjectOnto(v Vec3, s Surface) Vec3 {
	n := Normal(s)
	return v.Sub(n.Scale(v.Dot(n)))
}

// BoundaryMargin returns the smallest distance from p to any wall, ignoring
// floor and ceiling.
func (a Arena) BoundaryMargin(p Vec3) float64 {
	return math.Min(math.Min(p.X, a.Width-p.X), math.Min(p.Z, a.Depth-p.Z))
}

// Opposite returns the surface facing s across the arena.
func Opposite(s Surface) Surface {
	switch s {
	case SurfaceFloor:
		return SurfaceCeiling
	case SurfaceCeiling:
		return SurfaceFloor
	case SurfaceNorth:
		return SurfaceSouth
	case SurfaceSouth:
		return SurfaceNorth
	case SurfaceWest:
		return SurfaceEast
	case SurfaceEast:
		return SurfaceWest
	default:
		return SurfaceNone
	}
}

// Adjacent reports whether surfaces a and b share an edge.
func Adjacent(a, b Surface) bool {
	return a != SurfaceNone && b != SurfaceNone && a != b && Opposite(a) != b
}
