// Package match implements multi-tier canonical complex matching: coordinate
// proximity, address containment, and fuzzy name similarity.
package match

// JaroSimilarity computes the Jaro similarity between two strings in [0,1]:
// character overlap within half the length of the longer string, discounted
// by transpositions.
func JaroSimilarity(s1, s2 string) float64 {
	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) == 0 && len(r2) == 0 {
		return 1.0
	}
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	matchWindow := max(len(r1), len(r2))/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	matched1 := make([]bool, len(r1))
	matched2 := make([]bool, len(r2))

	matches := 0
	for i := range r1 {
		lo := i - matchWindow
		if lo < 0 {
			lo = 0
		}
		hi := i + matchWindow + 1
		if hi > len(r2) {
			hi = len(r2)
		}
		for j := lo; j < hi; j++ {
			if matched2[j] || r1[i] != r2[j] {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	j := 0
	for i := range r1 {
		if !matched1[i] {
			continue
		}
		for !matched2[j] {
			j++
		}
		if r1[i] != r2[j] {
			transpositions++
		}
		j++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(len(r1)) + m/float64(len(r2)) + (m-float64(transpositions))/m) / 3.0
}

// JaroWinklerSimilarity adds a common-prefix bonus (0.1 weight, up to 4
// characters) to the Jaro score, boosting names that share a leading brand
// token like "힐스테이트".
func JaroWinklerSimilarity(s1, s2 string) float64 {
	jaro := JaroSimilarity(s1, s2)

	r1 := []rune(s1)
	r2 := []rune(s2)

	prefix := 0
	for prefix < len(r1) && prefix < len(r2) && prefix < 4 && r1[prefix] == r2[prefix] {
		prefix++
	}

	return jaro + float64(prefix)*0.1*(1.0-jaro)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
