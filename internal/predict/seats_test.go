package predict

import "testing"

func seatSum(allocs []SeatAllocation) int {
	n := 0
	for _, a := range allocs {
		n += a.Seats
	}
	return n
}

func TestAllocateSeatsSumsExactly(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		shares map[string]float64
		total  int
	}{
		{name: "realistic field", shares: map[string]float64{"ldp": 0.35, "komeito": 0.07, "cdp": 0.30, "ishin": 0.18, "jcp": 0.10}, total: 465},
		{name: "unnormalized shares", shares: map[string]float64{"a": 3, "b": 2, "c": 1}, total: 100},
		{name: "two parties", shares: map[string]float64{"a": 0.5001, "b": 0.4999}, total: 465},
		{name: "zero share party", shares: map[string]float64{"a": 0.7, "b": 0.3, "c": 0}, total: 50},
		{name: "negative share clamped", shares: map[string]float64{"a": -0.2, "b": 0.6, "c": 0.4}, total: 100},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			allocs := AllocateSeats(tt.shares, tt.total)
			if got := seatSum(allocs); got != tt.total {
				t.Fatalf("seats sum = %d, want %d", got, tt.total)
			}
			for _, a := range allocs {
				if a.Seats < 0 {
					t.Fatalf("negative seats for %s", a.Party)
				}
			}
		})
	}
}

func TestAllocateSeatsDegenerate(t *testing.T) {
	t.Parallel()
	if got := AllocateSeats(nil, 465); got != nil {
		t.Fatalf("AllocateSeats(nil) = %v, want nil", got)
	}
	if got := AllocateSeats(map[string]float64{"a": 0.5}, 0); got != nil {
		t.Fatalf("AllocateSeats(total=0) = %v, want nil", got)
	}
	if got := AllocateSeats(map[string]float64{"a": 0, "b": 0}, 10); got != nil {
		t.Fatalf("AllocateSeats(all zero) = %v, want nil", got)
	}
}

func TestAllocateSeatsRemainderTieBreaks(t *testing.T) {
	t.Parallel()
	// b and c carry equal remainders and equal shares; the leftover seat goes
	// to the lexicographically smaller name.
	allocs := AllocateSeats(map[string]float64{"a": 0.5, "c": 0.25, "b": 0.25}, 10)
	seats := make(map[string]int, len(allocs))
	for _, a := range allocs {
		seats[a.Party] = a.Seats
	}
	if seats["a"] != 5 || seats["b"] != 3 || seats["c"] != 2 {
		t.Fatalf("seats = %v, want a=5 b=3 c=2", seats)
	}
}

func TestAllocateSeatsDeterministic(t *testing.T) {
	t.Parallel()
	shares := map[string]float64{"a": 1.0 / 3, "b": 1.0 / 3, "c": 1.0 / 3}
	first := AllocateSeats(shares, 10)
	for i := 0; i < 20; i++ {
		again := AllocateSeats(shares, 10)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("allocation not deterministic: %v vs %v", first, again)
			}
		}
	}
}

func TestMajorityThreshold(t *testing.T) {
	t.Parallel()
	if got := MajorityThreshold(465); got != 233 {
		t.Fatalf("MajorityThreshold(465) = %d, want 233", got)
	}
	if got := MajorityThreshold(10); got != 6 {
		t.Fatalf("MajorityThreshold(10) = %d, want 6", got)
	}
}

type stubStability map[string]float64

func (s stubStability) CoalitionStability(parties []string) (float64, bool) {
	key := ""
	for _, p := range parties {
		key += p + "+"
	}
	v, ok := s[key]
	return v, ok
}

func TestAnalyzeCoalitions(t *testing.T) {
	t.Parallel()
	allocs := []SeatAllocation{
		{Party: "ldp", Seats: 200},
		{Party: "komeito", Seats: 30},
		{Party: "cdp", Seats: 150},
		{Party: "ishin", Seats: 85},
	}
	stability := stubStability{"ldp+komeito+": 0.9}
	groupings := [][]string{{"ldp", "komeito"}, {"cdp", "ishin"}, {"ldp", "cdp"}}

	out := AnalyzeCoalitions(allocs, groupings, 465, stability)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	// Sorted by seats descending.
	if out[0].Seats != 350 || out[1].Seats != 235 || out[2].Seats != 230 {
		t.Fatalf("seat ordering wrong: %+v", out)
	}
	if !out[0].Majority || !out[1].Majority || out[2].Majority {
		t.Fatalf("majority flags wrong: %+v", out)
	}
	for _, c := range out {
		switch c.Seats {
		case 230:
			if c.Stability != 0.9 {
				t.Fatalf("known grouping stability = %v, want 0.9", c.Stability)
			}
		default:
			if c.Stability != defaultStability {
				t.Fatalf("unknown grouping stability = %v, want default %v", c.Stability, defaultStability)
			}
		}
	}
}
