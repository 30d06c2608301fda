package matsubo

type (
	// IdentityFunc reports whether two events are duplicates of each other.
	IdentityFunc func(a, b Event) bool

	// MergeFunc combines a duplicate b into the earlier survivor a.
	MergeFunc func(a, b Event) Event
)

// SameID is the default identity: equal ids.
func SameID(a, b Event) bool {
	return a.ID == b.ID
}

// SameIDAndDate keeps recurring instances of one listing apart.
func SameIDAndDate(a, b Event) bool {
	return a.ID == b.ID && a.DateStart == b.DateStart
}

// SameRow matches the store's key, so cross-listed copies under different
// topics are kept.
func SameRow(a, b Event) bool {
	return SameIDAndDate(a, b) && a.Visibility == b.Visibility
}

// KeepFirst discards b.
func KeepFirst(a, _ Event) Event {
	return a
}

// MergeDates keeps a and appends b's date display to a's, so the survivor
// lists every date it happens on.
func MergeDates(a, b Event) Event {
	a.DateFuzzy = a.DateRange() + " & " + b.DateRange()
	return a
}

// Merge collapses duplicates in events, first occurrence wins its position.
//
// Every later element is compared against the current survivor, and after a
// merge the scan resumes at the same index, so chains of duplicates collapse
// into one even when only the merged survivor matches a later element.
// A nil identity defaults to [SameID] and a nil merge to [KeepFirst].
//
// The input slice is not modified.
func Merge(events []Event, same IdentityFunc, merge MergeFunc) []Event {
	if same == nil {
		same = SameID
	}
	if merge == nil {
		merge = KeepFirst
	}

	out := make([]Event, len(events))
	copy(out, events)

	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); {
			if !same(out[i], out[j]) {
				j++
				continue
			}
			out[i] = merge(out[i], out[j])
			out = append(out[:j], out[j+1:]...)
		}
	}

	return out
}
