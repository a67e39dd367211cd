package verifier

import "unicode/utf8"

// Sanitize renders raw reference bytes as ASCII text. Every byte outside the
// ASCII range becomes a single space, so the text keeps the byte length of
// the input. It returns the number of bytes replaced.
func Sanitize(raw []byte) (string, int) {
	replaced := countNonASCII(raw)
	if replaced == 0 {
		return string(raw), 0
	}
	buf := make([]byte, len(raw))
	for i, c := range raw {
		if c >= utf8.RuneSelf {
			c = ' '
		}
		buf[i] = c
	}
	return string(buf), replaced
}

func countNonASCII(raw []byte) int {
	n := 0
	for _, c := range raw {
		if c >= utf8.RuneSelf {
			n++
		}
	}
	return n
}
