package booking

// Reservation is the minimal view of a committed reservation needed for conflict checks.
type Reservation struct {
	ID   int64
	Slot Slot
}

// Conflict details an existing reservation that a candidate slot would overlap.
type Conflict struct {
	WithReservationID int64
	Slot              Slot
}

// DetectConflicts returns every existing reservation whose slot overlaps the candidate.
// Callers must pass only reservations for the same room and date.
func DetectConflicts(existing []Reservation, candidate Slot) []Conflict {
	var conflicts []Conflict
	for _, reservation := range existing {
		if !candidate.Overlaps(reservation.Slot) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithReservationID: reservation.ID,
			Slot:              reservation.Slot,
		})
	}
	return conflicts
}
