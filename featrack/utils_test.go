package featrack

import (
	"math"
	"testing"
)

func TestIoU(t *testing.T) {
	r1 := NewRect(0, 0, 10, 10)
	r2 := NewRect(5, 5, 10, 10)
	correctAnswer := 25.0 / 175.0
	if answer := IoU(r1, r2); math.Abs(answer-correctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correctAnswer)
	}
	if answer := IoU(r1, r1); math.Abs(answer-1.0) > eps {
		t.Errorf("Wrong answer for identical rectangles: %v", answer)
	}
	if answer := IoU(r1, NewRect(10, 0, 10, 10)); answer != 0 {
		t.Errorf("Touching rectangles must not overlap, got %v", answer)
	}
}

func TestCircleIoU(t *testing.T) {
	c := NewPoint(0, 0)
	if answer := circleIoU(c, 6, c, 6); math.Abs(answer-1.0) > eps {
		t.Errorf("Identical circles: %v, expected 1", answer)
	}
	if answer := circleIoU(c, 6, NewPoint(6, 0), 6); answer != 0 {
		t.Errorf("Touching circles: %v, expected 0", answer)
	}
	// Circle of radius 1 inside circle of radius 2
	if answer := circleIoU(c, 4, NewPoint(0.5, 0), 2); math.Abs(answer-0.25) > eps {
		t.Errorf("Nested circles: %v, expected 0.25", answer)
	}
	if answer := circleIoU(c, 0, c, 6); answer != 0 {
		t.Errorf("Zero diameter: %v, expected 0", answer)
	}

	// Two unit circles with centers 1 apart: lens area is 2*pi/3 - sqrt(3)/2
	lens := 2.0*math.Pi/3.0 - math.Sqrt(3)/2.0
	correctAnswer := lens / (2*math.Pi - lens)
	answer := circleIoU(c, 2, NewPoint(1, 0), 2)
	if math.Abs(answer-correctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correctAnswer)
	}
	if reversed := circleIoU(NewPoint(1, 0), 2, c, 2); math.Abs(reversed-answer) > eps {
		t.Errorf("Overlap must be symmetric: %v vs %v", reversed, answer)
	}
}
