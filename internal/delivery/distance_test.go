package delivery

import (
	"math"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesmarket/internal/models"
)

func TestDistanceKnownPair(t *testing.T) {
	// Maseru city centre to Roma, roughly 28.4 km.
	maseru := models.Coordinates{Latitude: -29.31, Longitude: 27.48}
	roma := models.Coordinates{Latitude: -29.45, Longitude: 27.72}

	got := Distance(maseru, roma)
	if got < 27.5 || got > 29.5 {
		t.Fatalf("expected roughly 28.4 km, got %v", got)
	}
}

func TestDistanceSamePointIsZero(t *testing.T) {
	p := models.Coordinates{Latitude: -29.31, Longitude: 27.48}
	if got := Distance(p, p); got != 0 {
		t.Fatalf("expected 0 km for identical points, got %v", got)
	}
}

func TestDistanceRoundedToOneDecimal(t *testing.T) {
	a := models.Coordinates{Latitude: -29.31, Longitude: 27.48}
	b := models.Coordinates{Latitude: -29.32, Longitude: 27.49}
	got := Distance(a, b)
	if math.Abs(got*10-math.Round(got*10)) > 1e-9 {
		t.Fatalf("expected one-decimal rounding, got %v", got)
	}
}

func TestOrderNumberFormat(t *testing.T) {
	id, err := primitive.ObjectIDFromHex("65f1c2d3e4a5b6c7d8e9fa0b")
	if err != nil {
		t.Fatalf("bad fixture id: %v", err)
	}
	if got := OrderNumber(id); got != "ORDER-E9FA0B" {
		t.Fatalf("expected ORDER-E9FA0B, got %s", got)
	}
}

func TestFallback(t *testing.T) {
	if got := fallback("Thabo", "Unknown"); got != "Thabo" {
		t.Fatalf("expected primary value, got %s", got)
	}
	if got := fallback("  ", "Unknown"); got != "Unknown" {
		t.Fatalf("expected secondary for blank primary, got %s", got)
	}
}
