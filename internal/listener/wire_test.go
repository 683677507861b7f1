package listener

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

// chunkedReader returns one prepared chunk per Read call, so tests can
// split byte pairs across read boundaries.
type chunkedReader struct {
	chunks []string
	out    bytes.Buffer
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkedReader) Write(p []byte) (int, error) {
	return r.out.Write(p)
}

func TestLineEndingConn_Read(t *testing.T) {
	tests := map[string]struct {
		chunks []string
		exp    string
	}{
		"telnet crlf": {
			chunks: []string{"look\r\n"},
			exp:    "look\n",
		},
		"bare cr": {
			chunks: []string{"look\r"},
			exp:    "look\n",
		},
		"bare lf passes through": {
			chunks: []string{"look\n"},
			exp:    "look\n",
		},
		"crlf split across reads": {
			chunks: []string{"look\r", "\nsay hi\r\n"},
			exp:    "look\nsay hi\n",
		},
		"lf after ordinary byte is kept": {
			chunks: []string{"a\r", "b\n"},
			exp:    "a\nb\n",
		},
		"mixed endings": {
			chunks: []string{"one\r\ntwo\rthree\n"},
			exp:    "one\ntwo\nthree\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			conn := newLineEndingConn(&chunkedReader{chunks: tt.chunks})

			var sb strings.Builder
			buf := make([]byte, 64)
			for {
				n, err := conn.Read(buf)
				sb.Write(buf[:n])
				if err != nil {
					break
				}
			}

			testutil.AssertEqual(t, "normalized", sb.String(), tt.exp)
		})
	}
}

func TestLineEndingConn_Write(t *testing.T) {
	rw := &chunkedReader{}
	conn := newLineEndingConn(rw)

	n, err := conn.Write([]byte("line one\nline two\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The reported length is the caller's, not the expanded wire length.
	testutil.AssertEqual(t, "reported length", n, len("line one\nline two\n"))
	testutil.AssertEqual(t, "wire bytes", rw.out.String(), "line one\r\nline two\r\n")
}
