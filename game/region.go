package game

import (
	"fmt"
	"math"
)

// Point is one lattice cell in a named world.
type Point struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// CellOf discretizes a continuous position sample into its lattice cell.
func CellOf(world string, x, y, z float64) Point {
	return Point{
		World: world,
		X:     int(math.Floor(x)),
		Y:     int(math.Floor(y)),
		Z:     int(math.Floor(z)),
	}
}

func (p Point) String() string {
	return fmt.Sprintf("%s(%d,%d,%d)", p.World, p.X, p.Y, p.Z)
}

// Region is an axis-aligned box spanned by two opposite corners. The zero
// Region is unset and contains nothing.
type Region struct {
	world string
	a, b  Point
	set   bool
}

// NewRegion builds a region in world from two corners given in any order.
func NewRegion(world string, a, b Point) Region {
	return Region{world: world, a: a, b: b, set: true}
}

// IsSet reports whether both corners were provided.
func (r Region) IsSet() bool { return r.set }

func (r Region) World() string { return r.world }

// Min returns the lowest corner on every axis.
func (r Region) Min() Point {
	return Point{
		World: r.world,
		X:     min(r.a.X, r.b.X),
		Y:     min(r.a.Y, r.b.Y),
		Z:     min(r.a.Z, r.b.Z),
	}
}

// Max returns the highest corner on every axis.
func (r Region) Max() Point {
	return Point{
		World: r.world,
		X:     max(r.a.X, r.b.X),
		Y:     max(r.a.Y, r.b.Y),
		Z:     max(r.a.Z, r.b.Z),
	}
}

// Contains reports whether p lies inside the region, faces included.
func (r Region) Contains(p Point) bool {
	if !r.set || p.World != r.world {
		return false
	}
	lo, hi := r.Min(), r.Max()
	return p.X >= lo.X && p.X <= hi.X &&
		p.Y >= lo.Y && p.Y <= hi.Y &&
		p.Z >= lo.Z && p.Z <= hi.Z
}

// IsOnBoundary reports whether p is inside the region and sits on one of its
// outer faces, edges or corners.
func (r Region) IsOnBoundary(p Point) bool {
	if !r.Contains(p) {
		return false
	}
	lo, hi := r.Min(), r.Max()
	return p.X == lo.X || p.X == hi.X ||
		p.Y == lo.Y || p.Y == hi.Y ||
		p.Z == lo.Z || p.Z == hi.Z
}

// Volume is the number of lattice cells in the region.
func (r Region) Volume() int {
	if !r.set {
		return 0
	}
	lo, hi := r.Min(), r.Max()
	return (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1) * (hi.Z - lo.Z + 1)
}

// Cells calls fn for every cell in x, y, z order until fn returns false.
func (r Region) Cells(fn func(Point) bool) {
	if !r.set {
		return
	}
	lo, hi := r.Min(), r.Max()
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				if !fn(Point{World: r.world, X: x, Y: y, Z: z}) {
					return
				}
			}
		}
	}
}
