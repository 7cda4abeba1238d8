package placement

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestOverlaps(t *testing.T) {
	// requiredX = 148, requiredY = 110 with the default geometry.
	tests := []struct {
		name string
		p, q Point
		want bool
	}{
		{"same point", Point{100, 100}, Point{100, 100}, true},
		{"close on both axes", Point{0, 0}, Point{147, 109}, true},
		{"exact x threshold", Point{0, 0}, Point{148, 0}, false},
		{"exact y threshold", Point{0, 0}, Point{0, 110}, false},
		{"negative exact threshold", Point{0, 0}, Point{-148, -50}, false},
		{"far on x only", Point{0, 0}, Point{200, 0}, false},
		{"far on y only", Point{0, 0}, Point{0, 200}, false},
		{"just inside", Point{0, 0}, Point{147.999, 109.999}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.p, tt.q); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.p, tt.q, got, tt.want)
			}
			if got := Overlaps(tt.q, tt.p); got != tt.want {
				t.Errorf("Overlaps is not symmetric for %v, %v", tt.p, tt.q)
			}
		})
	}
}

func TestSuggestEmpty(t *testing.T) {
	got := Suggest(100, 100, nil)
	if got != (Point{100, 100}) {
		t.Errorf("Suggest with no notes = %v, want (100, 100)", got)
	}

	got = Suggest(12.75, -3.5, []Point{})
	if got != (Point{12.75, -3.5}) {
		t.Errorf("Suggest should not round a free position, got %v", got)
	}
}

func TestSuggestFreeDesired(t *testing.T) {
	existing := []Point{{0, 0}, {1000, 1000}}
	desired := Point{X: 148, Y: 0.5}

	res := New(DefaultConfig()).Place(desired, existing)
	if res.Point != desired {
		t.Errorf("Place() = %v, want unchanged %v", res.Point, desired)
	}
	if res.Adjusted || res.Exhausted || res.Attempts != 0 {
		t.Errorf("free placement should not search, got %+v", res)
	}
}

func TestSuggestSameSpot(t *testing.T) {
	existing := []Point{{100, 100}}
	adv := New(DefaultConfig())

	res := adv.Place(Point{100, 100}, existing)
	if res.Point == (Point{100, 100}) {
		t.Fatal("overlapping position should be moved")
	}
	if !adv.Free(res.Point, existing) {
		t.Errorf("suggested %v still overlaps", res.Point)
	}
	if res.Exhausted {
		t.Error("search should not be exhausted for a single note")
	}

	// Straight up at radius 120 is the first candidate past requiredY.
	if want := (Point{100, 220}); res.Point != want {
		t.Errorf("Place() = %v, want %v", res.Point, want)
	}
	if res.Attempts != 43 {
		t.Errorf("Attempts = %d, want 43", res.Attempts)
	}
}

func TestSuggestSpiralOrder(t *testing.T) {
	tests := []struct {
		name     string
		note     Point
		want     Point
		attempts int
	}{
		// Blocks 0°, 45° and 90° at radius 20; 135° is free.
		{"fourth angle", Point{140, 0}, Point{-14, 14}, 4},
		// 0° still overlaps on x; 45° clears requiredY.
		{"second angle", Point{0, -100}, Point{14, 14}, 2},
		// Mirror of the second case: 225° is the first free angle.
		{"sixth angle", Point{0, 100}, Point{-14, -14}, 6},
	}

	adv := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := adv.Place(Point{0, 0}, []Point{tt.note})
			if res.Point != tt.want {
				t.Errorf("Place() = %v, want %v", res.Point, tt.want)
			}
			if res.Attempts != tt.attempts {
				t.Errorf("Attempts = %d, want %d", res.Attempts, tt.attempts)
			}
		})
	}
}

func TestSuggestRoundsHalfUp(t *testing.T) {
	// First candidate is (-10.5, 0); half-up rounding gives -10, not -11.
	existing := []Point{{-170.5, 0}}
	got := Suggest(-30.5, 0, existing)
	if want := (Point{-10, 0}); got != want {
		t.Errorf("Suggest() = %v, want %v", got, want)
	}
}

func denseGrid(center Point) []Point {
	var notes []Point
	for i := -3; i <= 3; i++ {
		for j := -3; j <= 3; j++ {
			notes = append(notes, Point{center.X + float64(i)*200, center.Y + float64(j)*150})
		}
	}
	return notes
}

func TestSuggestExhausted(t *testing.T) {
	adv := New(DefaultConfig())
	existing := denseGrid(Point{100, 100})

	res := adv.Place(Point{100, 100}, existing)
	if want := (Point{400, 400}); res.Point != want {
		t.Fatalf("Place() = %v, want fallback %v", res.Point, want)
	}
	if !res.Exhausted || !res.Adjusted {
		t.Errorf("expected exhausted+adjusted, got %+v", res)
	}
	// 15 radii (20..300) x 8 angles.
	if res.Attempts != 120 {
		t.Errorf("Attempts = %d, want 120", res.Attempts)
	}
	// The fallback is returned without being re-checked.
	if adv.Free(res.Point, existing) {
		t.Error("fallback in this grid is expected to overlap")
	}
}

func TestSuggestOrderIndependent(t *testing.T) {
	existing := denseGrid(Point{0, 0})[10:30]
	existing = append(existing, Point{500, -40}, Point{-260, 75})
	want := Suggest(20, 10, existing)

	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		shuffled := append([]Point(nil), existing...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := Suggest(20, 10, shuffled); got != want {
			t.Fatalf("shuffle %d: Suggest() = %v, want %v", i, got, want)
		}
	}
}

func TestSuggestDoesNotMutate(t *testing.T) {
	existing := []Point{{0, 0}, {10, 10}}
	snapshot := append([]Point(nil), existing...)

	first := Suggest(5, 5, existing)
	second := Suggest(5, 5, existing)
	if first != second {
		t.Errorf("repeated calls differ: %v vs %v", first, second)
	}
	for i := range existing {
		if existing[i] != snapshot[i] {
			t.Fatalf("input mutated at %d: %v", i, existing[i])
		}
	}
}

func TestSuggestProperties(t *testing.T) {
	adv := New(DefaultConfig())
	r := rand.New(rand.NewPCG(42, 7))

	for i := 0; i < 200; i++ {
		var existing []Point
		for n := r.IntN(12); n > 0; n-- {
			existing = append(existing, Point{r.Float64()*1200 - 600, r.Float64()*1200 - 600})
		}
		desired := Point{r.Float64()*800 - 400, r.Float64()*800 - 400}

		res := adv.Place(desired, existing)
		if math.IsNaN(res.X) || math.IsInf(res.X, 0) || math.IsNaN(res.Y) || math.IsInf(res.Y, 0) {
			t.Fatalf("non-finite result %v", res.Point)
		}

		overlapped := !adv.Free(desired, existing)
		switch {
		case !overlapped && res.Point != desired:
			t.Fatalf("free desired %v moved to %v", desired, res.Point)
		case overlapped && res.Point == desired:
			t.Fatalf("overlapping desired %v was not moved", desired)
		case overlapped && !res.Exhausted && !adv.Free(res.Point, existing):
			t.Fatalf("suggested %v overlaps existing notes", res.Point)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	adv := New(Config{})
	if adv.Config() != DefaultConfig() {
		t.Errorf("zero config = %+v, want defaults", adv.Config())
	}

	adv = New(Config{NoteWidth: 100, NoteHeight: 50, MinDistance: 10, SearchRadius: 40, SpiralStep: 10})
	// requiredX = 55, requiredY = 30.
	if !adv.Overlaps(Point{0, 0}, Point{54, 29}) {
		t.Error("custom geometry should overlap at (54, 29)")
	}
	if adv.Overlaps(Point{0, 0}, Point{55, 0}) {
		t.Error("custom geometry should not overlap at the x threshold")
	}

	res := adv.Place(Point{0, 0}, []Point{{0, 0}})
	if res.Exhausted {
		t.Fatalf("custom geometry exhausted unexpectedly: %+v", res)
	}
	if want := (Point{0, 30}); res.Point != want {
		t.Errorf("Place() = %v, want %v", res.Point, want)
	}
}
