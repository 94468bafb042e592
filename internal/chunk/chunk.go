// Package chunk groups identifier lists into comma-joined strings that fit
// under a backing store's maximum parameter length.
package chunk

import "strings"

// Split converts keys into comma-joined strings, each shorter than maxLength.
//
//	Split(10, []string{"12345", "67890", "abcde"}) => ["12345,67890", "abcde"]
//
// Keys keep their order. A key that is itself too long is emitted alone.
func Split(maxLength int, keys []string) []string {
	out := make([]string, 0, len(keys)/2+1)
	var b strings.Builder
	n := 0 // keys in the open group; an empty key still counts

	for _, key := range keys {
		switch {
		case n == 0:
			b.WriteString(key)
		case b.Len()+len(key)+1 < maxLength:
			b.WriteByte(',')
			b.WriteString(key)
		default:
			out = append(out, b.String())
			b.Reset()
			b.WriteString(key)
			n = 0
		}
		n++
	}

	if n > 0 {
		out = append(out, b.String())
	}
	return out
}
