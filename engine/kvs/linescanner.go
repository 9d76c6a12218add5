package kvs

import (
	"bufio"
	"io"
)

// lineScanner reads newline-delimited records, distinguishing a clean EOF
// from a truncated final record: a trailing line with no terminating
// newline is treated as "not there" rather than as a parse error, per
// spec.md §4.1's durability contract ("the rebuild parser tolerates a
// truncated final record by treating the unterminated-line as EOF").
type lineScanner struct {
	r *bufio.Reader
}

func newLineScanner(r io.Reader) *lineScanner {
	return &lineScanner{r: bufio.NewReader(r)}
}

// next returns the next line, with its trailing '\n' stripped, and ok=true.
// It returns ok=false once there are no more complete, newline-terminated
// lines to read.
func (s *lineScanner) next() ([]byte, bool) {
	line, err := s.r.ReadBytes('\n')
	if err != nil {
		// Either a clean io.EOF with nothing left, or a truncated final
		// record with no trailing newline. Either way, there is no more
		// complete record to hand back.
		return nil, false
	}
	return line[:len(line)-1], true
}
