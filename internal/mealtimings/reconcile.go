package mealtimings

// Reconcile merges a week's saved timing structure with the client's
// current registry and returns the effective structure for that week.
//
// Rules:
//   - no saved structure: use current
//   - saved identical to current: use current
//   - saved shorter than current: the registry already grew past the
//     stored week, keep current (never downgrade to a shorter structure)
//   - otherwise: the saved structure wins, so food laid out against an
//     older registry keeps its slot labels
func Reconcile(saved, current []Timing) []Timing {
	if len(saved) == 0 {
		return current
	}
	if equal(saved, current) {
		return current
	}
	if len(saved) < len(current) {
		return current
	}
	return saved
}

func equal(a, b []Timing) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].MealNumber != b[i].MealNumber || a[i].Time != b[i].Time {
			return false
		}
	}
	return true
}
