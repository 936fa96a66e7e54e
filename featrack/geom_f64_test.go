package featrack

import (
	"image"
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestEuclideanDistance(t *testing.T) {
	p1 := Point{X: 341, Y: 264}
	p2 := Point{X: 421, Y: 427}
	correnctAnswer := 181.57367
	answer := euclideanDistance(p1, p2)
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
}

func TestRectangleContains(t *testing.T) {
	rect := NewRect(10, 20, 30, 40)
	cases := []struct {
		point    Point
		expected bool
	}{
		{NewPoint(10, 20), true},
		{NewPoint(39.9, 59.9), true},
		{NewPoint(25, 30), true},
		{NewPoint(40, 30), false},
		{NewPoint(25, 60), false},
		{NewPoint(9.99, 30), false},
		{NewPoint(25, 19.99), false},
	}
	for _, c := range cases {
		if answer := rect.Contains(c.point); answer != c.expected {
			t.Errorf("Contains(%v) = %v, expected %v", c.point, answer, c.expected)
		}
	}
}

func TestNewRectFrom(t *testing.T) {
	rect := NewRectFrom(image.Rect(5, 6, 15, 26))
	expected := Rectangle{X: 5, Y: 6, Width: 10, Height: 20}
	if rect != expected {
		t.Errorf("Wrong rectangle: %v, expected %v", rect, expected)
	}
	if rect.Area() != 200 {
		t.Errorf("Wrong area: %v, expected %v", rect.Area(), 200)
	}
	if NewRect(0, 0, -1, 10).Area() != 0 {
		t.Errorf("Degenerate rectangle must have zero area")
	}
}
