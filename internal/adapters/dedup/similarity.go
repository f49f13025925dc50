package dedup

import "math"

// SimilarityPercent возвращает процент схожести двух строк по
// алгоритму наибольших общих подстрок (как similar_text в PHP):
// находится самая длинная общая подстрока, затем рекурсивно
// сравниваются фрагменты слева и справа от неё. В отличие от PHP
// порядок аргументов канонизируется, поэтому схожесть симметрична.
func SimilarityPercent(a, b string) float64 {
	if a > b {
		a, b = b, a
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 100
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	common := similarChars(ra, rb)
	return float64(common*2) * 100 / float64(len(ra)+len(rb))
}

func similarChars(a, b []rune) int {
	posA, posB, max := longestCommonRun(a, b)
	if max == 0 {
		return 0
	}
	sum := max
	if posA > 0 && posB > 0 {
		sum += similarChars(a[:posA], b[:posB])
	}
	if posA+max < len(a) && posB+max < len(b) {
		sum += similarChars(a[posA+max:], b[posB+max:])
	}
	return sum
}

func longestCommonRun(a, b []rune) (posA, posB, max int) {
	for i := range a {
		for j := range b {
			length := 0
			for i+length < len(a) && j+length < len(b) && a[i+length] == b[j+length] {
				length++
			}
			if length > max {
				posA, posB, max = i, j, length
			}
		}
	}
	return posA, posB, max
}

// CosineSimilarity возвращает косинусную близость двух векторов.
// Векторы сравниваются по меньшей из длин; нулевые векторы дают 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
