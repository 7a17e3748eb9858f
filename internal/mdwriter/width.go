package mdwriter

import "golang.org/x/text/width"

// runeWidth returns the terminal display width of r: 2 for East-Asian
// wide/fullwidth runes, 1 otherwise. Grid table border arithmetic needs this
// instead of len() so CJK author names and descriptions don't throw off
// column alignment.
func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

// padDisplay right-pads s with spaces until its display width reaches w.
func padDisplay(s string, w int) string {
	pad := w - displayWidth(s)
	if pad <= 0 {
		return s
	}
	b := make([]byte, 0, len(s)+pad)
	b = append(b, s...)
	for i := 0; i < pad; i++ {
		b = append(b, ' ')
	}
	return string(b)
}
