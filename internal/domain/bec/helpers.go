package bec

import "strings"

// extractDomain extracts the lower-cased domain from an email address
func extractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "" // Malformed email address
	}
	return strings.ToLower(parts[1])
}

// domainBase strips the TLD from a domain: "company.com" -> "company"
func domainBase(domain string) string {
	idx := strings.LastIndex(domain, ".")
	if idx < 0 {
		return domain
	}
	return domain[:idx]
}

// editDistance calculates the edit distance between two strings, counting
// an adjacent-character transposition as a single edit (optimal string
// alignment). Typosquats like "compnay" for "company" are one keystroke
// slip, and the detector treats them as distance 1.
func editDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// DP table: matrix[i][j] = distance between s1[0:i] and s2[0:j]
	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
	}
	for i := 0; i <= len(s1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)

			// Transposition of adjacent characters counts as one edit
			if i > 1 && j > 1 && s1[i-1] == s2[j-2] && s1[i-2] == s2[j-1] {
				matrix[i][j] = min(matrix[i][j], matrix[i-2][j-2]+1)
			}
		}
	}

	return matrix[len(s1)][len(s2)]
}

// normalizeName lower-cases and collapses whitespace for fuzzy name matching
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// significantWords returns the words of a normalized name that carry
// identity information (length > 2, not a courtesy title)
func significantWords(name string) []string {
	skip := map[string]bool{
		"mr": true, "mrs": true, "ms": true, "dr": true, "the": true,
	}
	var words []string
	for _, word := range strings.Fields(normalizeName(name)) {
		word = strings.Trim(word, ".,")
		if len(word) > 2 && !skip[word] {
			words = append(words, word)
		}
	}
	return words
}
