package predict

import (
	"math"
	"sort"
)

// TotalSeats is the size of the lower house being forecast.
const TotalSeats = 465

// MajorityThreshold returns the seat count needed for a majority.
func MajorityThreshold(totalSeats int) int {
	return totalSeats/2 + 1
}

// SeatAllocation is one party's share of the chamber.
type SeatAllocation struct {
	Party     string  `json:"party"`
	VoteShare float64 `json:"vote_share"`
	Seats     int     `json:"seats"`
}

// AllocateSeats converts vote shares into seat counts with the
// largest-remainder method. Seats are non-negative integers summing exactly
// to totalSeats. Remainder ties go to the party with the higher vote share,
// then to the lexicographically smaller party name.
func AllocateSeats(shares map[string]float64, totalSeats int) []SeatAllocation {
	if totalSeats <= 0 || len(shares) == 0 {
		return nil
	}
	total := 0.0
	for _, s := range shares {
		if s > 0 {
			total += s
		}
	}
	if total == 0 {
		return nil
	}

	type quota struct {
		party     string
		share     float64
		floor     int
		remainder float64
	}
	quotas := make([]quota, 0, len(shares))
	allocated := 0
	for party, share := range shares {
		if share < 0 {
			share = 0
		}
		q := share / total * float64(totalSeats)
		fl := int(math.Floor(q))
		quotas = append(quotas, quota{party: party, share: share, floor: fl, remainder: q - float64(fl)})
		allocated += fl
	}

	sort.Slice(quotas, func(i, j int) bool {
		a, b := quotas[i], quotas[j]
		if a.remainder != b.remainder {
			return a.remainder > b.remainder
		}
		if a.share != b.share {
			return a.share > b.share
		}
		return a.party < b.party
	})
	for i := 0; allocated < totalSeats; i++ {
		quotas[i%len(quotas)].floor++
		allocated++
	}

	out := make([]SeatAllocation, len(quotas))
	for i, q := range quotas {
		out[i] = SeatAllocation{Party: q.party, VoteShare: q.share / total, Seats: q.floor}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seats != out[j].Seats {
			return out[i].Seats > out[j].Seats
		}
		return out[i].Party < out[j].Party
	})
	return out
}

// StabilityLookup supplies a historical stability score in [0,1] for a party
// grouping. Implementations consult past coalition records.
type StabilityLookup interface {
	CoalitionStability(parties []string) (float64, bool)
}

// Coalition is one candidate party grouping evaluated against the majority
// threshold.
type Coalition struct {
	Parties   []string `json:"parties"`
	Seats     int      `json:"seats"`
	Majority  bool     `json:"majority"`
	Stability float64  `json:"stability"`
}

// defaultStability is assumed when no historical record exists for a grouping.
const defaultStability = 0.5

// AnalyzeCoalitions sums seats for each candidate grouping and flags the
// majority-capable ones. Stability comes from the lookup collaborator, with a
// neutral default for unknown groupings. Results are sorted by seats
// descending.
func AnalyzeCoalitions(allocations []SeatAllocation, groupings [][]string, totalSeats int, stability StabilityLookup) []Coalition {
	seatsBy := make(map[string]int, len(allocations))
	for _, a := range allocations {
		seatsBy[a.Party] = a.Seats
	}
	threshold := MajorityThreshold(totalSeats)

	out := make([]Coalition, 0, len(groupings))
	for _, parties := range groupings {
		sum := 0
		for _, p := range parties {
			sum += seatsBy[p]
		}
		c := Coalition{Parties: parties, Seats: sum, Majority: sum >= threshold, Stability: defaultStability}
		if stability != nil {
			if s, ok := stability.CoalitionStability(parties); ok {
				c.Stability = s
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seats > out[j].Seats })
	return out
}
