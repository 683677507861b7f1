package listener

import (
	"bytes"
	"io"
)

// lineEndingConn normalizes line endings between the wire and the session
// layer. Telnet clients send \r\n and SSH clients without a PTY send bare
// \r; sessions only ever see \n. Outbound \n becomes \r\n, which both
// protocols accept.
type lineEndingConn struct {
	rw io.ReadWriter

	// sawCR remembers a \r at the end of the previous Read so a \r\n pair
	// split across reads still collapses to a single newline.
	sawCR bool
}

func newLineEndingConn(rw io.ReadWriter) io.ReadWriter {
	return &lineEndingConn{rw: rw}
}

func (c *lineEndingConn) Read(p []byte) (int, error) {
	n, err := c.rw.Read(p)

	// Rewrite in place: the output never outruns the input cursor.
	out := p[:0]
	for _, b := range p[:n] {
		switch {
		case b == '\r':
			out = append(out, '\n')
			c.sawCR = true
		case b == '\n' && c.sawCR:
			c.sawCR = false
		default:
			out = append(out, b)
			c.sawCR = false
		}
	}
	return len(out), err
}

func (c *lineEndingConn) Write(p []byte) (int, error) {
	converted := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	if _, err := c.rw.Write(converted); err != nil {
		return 0, err
	}
	// Report the caller's length; the expansion is invisible above the wire.
	return len(p), nil
}
