package verifier

import (
	"math"
	"strings"
)

// PartialRatio scores in [0,100] how well the shorter of a and b aligns
// somewhere inside the longer one. Every window of the longer string with
// the shorter string's length is compared; a window scores
// 2m/(len(window)+len(shorter)) where m is their longest common subsequence.
// The best window wins. Either string being empty scores 0.
func PartialRatio(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	n := len(shorter)
	if strings.Contains(longer, shorter) {
		return 100
	}

	// The LCS of a window can never exceed the byte multiset intersection of
	// the window and the shorter string, which slides in O(1) per offset.
	var want, have [256]int
	for i := 0; i < n; i++ {
		want[shorter[i]]++
		have[longer[i]]++
	}
	bound := 0
	for c := range want {
		bound += min(want[c], have[c])
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	best := 0
	for off := 0; ; off++ {
		if bound > best {
			if m := lcsLength(shorter, longer[off:off+n], prev, curr); m > best {
				best = m
				if best == n {
					break
				}
			}
		}
		if off+n >= len(longer) {
			break
		}
		out, in := longer[off], longer[off+n]
		if out != in {
			if have[out] <= want[out] {
				bound--
			}
			have[out]--
			if have[in] < want[in] {
				bound++
			}
			have[in]++
		}
	}
	return int(math.Round(100 * float64(best) / float64(n)))
}

// lcsLength returns the longest common subsequence length of a and b using
// two caller-provided rows of len(b)+1.
func lcsLength(a, b string, prev, curr []int) int {
	for j := range prev {
		prev[j] = 0
	}
	for i := 0; i < len(a); i++ {
		curr[0] = 0
		ai := a[i]
		for j := 0; j < len(b); j++ {
			switch {
			case ai == b[j]:
				curr[j+1] = prev[j] + 1
			case prev[j+1] >= curr[j]:
				curr[j+1] = prev[j+1]
			default:
				curr[j+1] = curr[j]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
