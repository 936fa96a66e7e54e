package featrack

import "math"

// IoU calculates Intersection over Union between two rectangles.
func IoU(r1, r2 Rectangle) float64 {
	xA := maxFloat64(r1.X, r2.X)
	yA := maxFloat64(r1.Y, r2.Y)
	xB := minFloat64(r1.X+r1.Width, r2.X+r2.Width)
	yB := minFloat64(r1.Y+r1.Height, r2.Y+r2.Height)

	interArea := maxFloat64(0, xB-xA) * maxFloat64(0, yB-yA)
	if interArea == 0 {
		return 0.0
	}

	r1Area := r1.Area()
	r2Area := r2.Area()

	return interArea / (r1Area + r2Area - interArea)
}

// circleIoU calculates intersection over union of two circles given by centers and diameters.
// Zero or negative diameters give zero overlap.
func circleIoU(c1 Point, d1 float64, c2 Point, d2 float64) float64 {
	if d1 <= 0 || d2 <= 0 {
		return 0.0
	}
	r1 := d1 / 2.0
	r2 := d2 / 2.0
	dist := euclideanDistance(c1, c2)
	if dist >= r1+r2 {
		return 0.0
	}

	area1 := math.Pi * r1 * r1
	area2 := math.Pi * r2 * r2
	var interArea float64
	if dist <= math.Abs(r1-r2) {
		// One circle lies inside the other one
		interArea = math.Pi * math.Pow(minFloat64(r1, r2), 2)
	} else {
		// Lens area formed by two intersecting circles
		alpha := math.Acos(clampFloat64((dist*dist+r1*r1-r2*r2)/(2*dist*r1), -1, 1))
		beta := math.Acos(clampFloat64((dist*dist+r2*r2-r1*r1)/(2*dist*r2), -1, 1))
		interArea = r1*r1*(alpha-math.Sin(2*alpha)/2.0) + r2*r2*(beta-math.Sin(2*beta)/2.0)
	}
	return interArea / (area1 + area2 - interArea)
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clampFloat64(v, lo, hi float64) float64 {
	return maxFloat64(lo, minFloat64(v, hi))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
