package audit

import "sort"

// Diff computes the downgrade candidate set: every username in the full
// roster that holds no on-call duty and is not a team admin. Pure and
// order-independent; inputs are never mutated and the result only ever
// contains names present in allUsers.
func Diff(allUsers, onCall, admins []string) []string {
	exclude := make(map[string]struct{}, len(onCall)+len(admins))
	for _, name := range onCall {
		exclude[name] = struct{}{}
	}
	for _, name := range admins {
		exclude[name] = struct{}{}
	}

	seen := make(map[string]struct{}, len(allUsers))
	var candidates []string
	for _, name := range allUsers {
		if _, excluded := exclude[name]; excluded {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		candidates = append(candidates, name)
	}

	sort.Strings(candidates)
	return candidates
}
