// Package bigram splits byte sequences into overlapping byte pairs. It works
// on raw bytes, never on runes, so invalid UTF-8 input is handled like any
// other byte string. Sequences shorter than two bytes produce no bigrams.
package bigram

import "strconv"

// Bigram is an ordered pair of adjacent bytes packed as first<<8 | second.
type Bigram uint16

// Of packs two bytes into a Bigram.
func Of(first, second byte) Bigram {
	return Bigram(first)<<8 | Bigram(second)
}

// Bytes unpacks the pair.
func (b Bigram) Bytes() (byte, byte) {
	return byte(b >> 8), byte(b)
}

func (b Bigram) String() string {
	first, second := b.Bytes()
	return strconv.Quote(string([]byte{first, second}))
}

// Frequencies maps each bigram of a sequence to its number of occurrences.
type Frequencies map[Bigram]int

// Generate returns every bigram of seq in order of appearance.
func Generate(seq []byte) []Bigram {
	if len(seq) < 2 {
		return nil
	}
	out := make([]Bigram, 0, len(seq)-1)
	for i := 0; i+1 < len(seq); i++ {
		out = append(out, Of(seq[i], seq[i+1]))
	}
	return out
}

// Count clears freq and fills it with the bigram counts of seq, returning the
// total number of bigrams seen. Reusing freq across calls avoids reallocating
// the map for every line.
func Count(seq []byte, freq Frequencies) int {
	clear(freq)
	if len(seq) < 2 {
		return 0
	}
	for i := 0; i+1 < len(seq); i++ {
		freq[Of(seq[i], seq[i+1])]++
	}
	return len(seq) - 1
}

// CountNew returns a fresh frequency table for seq.
func CountNew(seq []byte) Frequencies {
	freq := make(Frequencies)
	Count(seq, freq)
	return freq
}

// Overlap returns the multiset intersection size of two frequency tables:
// the sum over shared bigrams of the smaller count.
func Overlap(a, b Frequencies) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	total := 0
	for bg, ca := range a {
		if cb, ok := b[bg]; ok {
			total += min(ca, cb)
		}
	}
	return total
}
