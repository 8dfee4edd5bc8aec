package storage

import "strings"

// isTestPath reports whether a file path belongs to test code, using the
// same heuristic ftsSearch's score-halving rule uses: a /tests/ directory
// segment or a /test_ prefixed file name.
func isTestPath(filePath string) bool {
	return strings.Contains(filePath, "/tests/") || strings.Contains(filePath, "/test_")
}

// exactNameScore returns the exactNameSearch score for a node at filePath:
// 2.0 for non-test paths, 1.0 for test paths.
func exactNameScore(filePath string) float64 {
	if isTestPath(filePath) {
		return 1.0
	}
	return 2.0
}

// isSearchableLabel reports whether a label participates in name search
// (exact/fuzzy): every label except folder, community, and process.
func isSearchableLabel(label string) bool {
	switch label {
	case "folder", "community", "process":
		return false
	default:
		return true
	}
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	la, lb := len(ra), len(rb)

	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

// fuzzyScore converts a Levenshtein distance into the fuzzySearch score:
// max(0.3, 1.0 - distance*0.3).
func fuzzyScore(distance int) float64 {
	score := 1.0 - float64(distance)*0.3
	if score < 0.3 {
		return 0.3
	}
	return score
}
