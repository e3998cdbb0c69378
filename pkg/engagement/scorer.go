// Package engagement ranks clubs by weighted activity relative to the most
// active club in the same batch.
package engagement

import (
	"math"
	"sort"
)

// Weights applied to each activity count.
const (
	MemberWeight = 0.2
	EventWeight  = 0.3
	PostWeight   = 0.3
	PollWeight   = 0.2
)

// Counts are the live activity totals of one club.
type Counts struct {
	ClubID   string `json:"club_id" db:"club_id"`
	ClubName string `json:"club_name" db:"club_name"`
	Members  int    `json:"member_count" db:"member_count"`
	Events   int    `json:"event_count" db:"event_count"`
	Posts    int    `json:"post_count" db:"post_count"`
	Polls    int    `json:"poll_count" db:"poll_count"`
}

// Snapshot is a scored club. It is derived state only and carries unrounded
// scores; see Rounded for display.
type Snapshot struct {
	Counts
	RawScore   float64 `json:"raw_score"`
	Percentage float64 `json:"engagement_percentage"`
}

// RawScore is the weighted activity sum of a single club.
func RawScore(c Counts) float64 {
	return float64(c.Members)*MemberWeight +
		float64(c.Events)*EventWeight +
		float64(c.Posts)*PostWeight +
		float64(c.Polls)*PollWeight
}

// Score scores a batch. Percentages are relative to the highest raw score in
// the batch; when the batch is empty or every score is zero the divisor is 1.
// Output preserves input order.
func Score(batch []Counts) []Snapshot {
	raw := make([]float64, len(batch))
	max := 0.0
	for i, c := range batch {
		raw[i] = RawScore(c)
		if raw[i] > max {
			max = raw[i]
		}
	}
	if max <= 0 {
		max = 1
	}
	snapshots := make([]Snapshot, len(batch))
	for i, c := range batch {
		snapshots[i] = Snapshot{
			Counts:     c,
			RawScore:   raw[i],
			Percentage: raw[i] / max * 100,
		}
	}
	return snapshots
}

// Ranked scores a batch and orders it by percentage, highest first, then by
// club name.
func Ranked(batch []Counts) []Snapshot {
	snapshots := Score(batch)
	sort.SliceStable(snapshots, func(i, j int) bool {
		if snapshots[i].Percentage != snapshots[j].Percentage {
			return snapshots[i].Percentage > snapshots[j].Percentage
		}
		return snapshots[i].ClubName < snapshots[j].ClubName
	})
	return snapshots
}

// Rounded returns a copy of snapshots with scores rounded to two decimals.
func Rounded(snapshots []Snapshot) []Snapshot {
	out := make([]Snapshot, len(snapshots))
	for i, snap := range snapshots {
		snap.RawScore = round2(snap.RawScore)
		snap.Percentage = round2(snap.Percentage)
		out[i] = snap
	}
	return out
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
