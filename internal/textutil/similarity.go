package textutil

import "sort"

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for gram, count := range a.grams {
		if other, ok := b.grams[gram]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// Similarity compares two strings by trigram cosine similarity.
func Similarity(a, b string) float64 {
	return CosineSimilarity(NewFingerprint(a), NewFingerprint(b))
}

// Suggest returns up to limit candidates scoring at least threshold against
// query, best first. Duplicate candidates are reported once.
func Suggest(query string, candidates []string, limit int, threshold float64) []string {
	target := NewFingerprint(query)
	if target == nil || limit <= 0 {
		return nil
	}
	type scored struct {
		name  string
		score float64
	}
	seen := make(map[string]struct{}, len(candidates))
	var matches []scored
	for _, candidate := range candidates {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		score := CosineSimilarity(target, NewFingerprint(candidate))
		if score >= threshold {
			matches = append(matches, scored{name: candidate, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}
