package featrack

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned rectangle in image coordinates
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Contains reports whether point lies inside the rectangle.
// Containment is half-open: x <= px < x+width and y <= py < y+height.
func (r Rectangle) Contains(p Point) bool {
	return r.X <= p.X && p.X < r.X+r.Width && r.Y <= p.Y && p.Y < r.Y+r.Height
}

// Area returns rectangle's area. Degenerate rectangles have zero area
func (r Rectangle) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(p1.X-p2.X, 2) + math.Pow(p1.Y-p2.Y, 2))
}
