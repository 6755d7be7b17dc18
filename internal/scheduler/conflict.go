package scheduler

import "sort"

// ConflictType describes what a candidate range collided with.
type ConflictType string

const (
	// ConflictTypeSession indicates an existing, non-cancelled booking.
	ConflictTypeSession ConflictType = "session"
	// ConflictTypeBlackout indicates an administrator blackout period.
	ConflictTypeBlackout ConflictType = "blackout"
)

// Conflict details an overlapping entry that callers can present to users.
type Conflict struct {
	Type  ConflictType
	ID    string
	Range TimeRange
}

// OverlappingSessions returns the non-cancelled sessions overlapping r, skipping
// any whose id is in exclude. Results are ordered by start.
func OverlappingSessions(sessions []Session, r TimeRange, exclude map[string]struct{}) []Session {
	var out []Session
	for _, s := range sessions {
		if s.Cancelled() {
			continue
		}
		if _, skip := exclude[s.ID]; skip {
			continue
		}
		if s.Range().Overlaps(r) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range().Start().Before(out[j].Range().Start())
	})
	return out
}

// OverlappingBlackouts returns the blackout periods overlapping r, skipping
// any whose id is in exclude.
func OverlappingBlackouts(blackouts []Blackout, r TimeRange, exclude map[string]struct{}) []Blackout {
	var out []Blackout
	for _, b := range blackouts {
		if _, skip := exclude[b.ID]; skip {
			continue
		}
		if b.Range().Overlaps(r) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range().Start().Before(out[j].Range().Start())
	})
	return out
}

// DetectConflicts lists every session and blackout that blocks r.
func DetectConflicts(r TimeRange, sessions []Session, blackouts []Blackout, exclude map[string]struct{}) []Conflict {
	var conflicts []Conflict
	for _, b := range OverlappingBlackouts(blackouts, r, nil) {
		conflicts = append(conflicts, Conflict{Type: ConflictTypeBlackout, ID: b.ID, Range: b.Range()})
	}
	for _, s := range OverlappingSessions(sessions, r, exclude) {
		conflicts = append(conflicts, Conflict{Type: ConflictTypeSession, ID: s.ID, Range: s.Range()})
	}
	return conflicts
}

// IDSet builds an exclusion set, ignoring empty ids.
func IDSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
