package pipeline

// mergeFollowUps unions the judge's recommendations into the accumulated
// follow-up set, preserving first-seen order. It returns the merged set and
// the newly accepted questions, in recommendation order. Each distinct
// question text appears at most once and nothing already present is dropped.
func mergeFollowUps(current []string, recommended []string) (merged []string, accepted []string) {
	seen := make(map[string]struct{}, len(current)+len(recommended))
	merged = make([]string, 0, len(current)+len(recommended))
	for _, question := range current {
		if _, ok := seen[question]; ok {
			continue
		}
		seen[question] = struct{}{}
		merged = append(merged, question)
	}
	for _, question := range recommended {
		if _, ok := seen[question]; ok {
			continue
		}
		seen[question] = struct{}{}
		merged = append(merged, question)
		accepted = append(accepted, question)
	}
	return merged, accepted
}
