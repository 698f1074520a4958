package completion

import (
	"bufio"
	"bytes"
	"io"
)

// maxEventSize bounds a single SSE event (64KB). Anything larger is a
// malformed or hostile stream.
const maxEventSize = 64 * 1024

// sseReader parses Server-Sent Events from a provider response body.
type sseReader struct {
	r *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{r: bufio.NewReader(r)}
}

// readEvent returns the data payload of the next SSE event. Field lines
// other than "data:" (id:, retry:, comments) are ignored. Returns io.EOF
// when the stream ends.
func (s *sseReader) readEvent() ([]byte, error) {
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.r.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			size += len(data)
			if size > maxEventSize {
				return nil, errEventTooLarge
			}
			dataLines = append(dataLines, data)
		}
	}
}

var errEventTooLarge = &Error{Kind: KindTransport, Msg: "sse event exceeds size limit"}
