// Package format implements the bounded formatter uberlog uses to turn a
// level's prefix plus a caller's printf-style arguments into a single
// contiguous byte slice, preferring a caller-supplied scratch buffer over
// a heap allocation whenever the result fits.
package format

import "fmt"

// StackBufSize is the size of the scratch array Logger.Log keeps on its
// own stack frame before falling back to the heap. It is large enough for
// the 42-byte prefix plus a typical short log line.
const StackBufSize = 200

// Into renders prefix followed by fmt.Sprintf(spec, args...) into dst and
// returns the slice actually holding the result. When the combined length
// fits within dst's capacity, Into reuses dst (the common case, avoiding
// any allocation beyond what Sprintf itself needs for argument
// formatting); otherwise it allocates a new, exactly-sized slice and
// returns that instead. Callers must use the returned slice, not dst,
// since which one holds the data is Into's decision alone.
func Into(dst []byte, prefix string, spec string, args ...any) []byte {
	body := fmt.Sprintf(spec, args...)
	need := len(prefix) + len(body)

	var buf []byte
	if need <= cap(dst) {
		buf = dst[:need]
	} else {
		buf = make([]byte, need)
	}
	copy(buf, prefix)
	copy(buf[len(prefix):], body)
	return buf
}
