package bbl

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoHeaders is returned when a session file does not start with a header block.
var ErrNoHeaders = errors.New("no header lines found")

const headerPrefix = "H "

// ReadHeaders reads the leading "H name:value" lines of a session file.
// Reading stops at the first line that is not a header, which is where the
// binary frame data starts.
func ReadHeaders(r io.Reader) (map[string]string, error) {
	br := bufio.NewReader(r)
	headers := make(map[string]string)

	for {
		peek, err := br.Peek(len(headerPrefix))
		if err != nil || !bytes.Equal(peek, []byte(headerPrefix)) {
			break
		}

		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading header line: %w", err)
		}

		name, value, ok := parseHeaderLine(line)
		if ok {
			headers[name] = value
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	if len(headers) == 0 {
		return nil, ErrNoHeaders
	}
	return headers, nil
}

func parseHeaderLine(line string) (name, value string, ok bool) {
	line = strings.TrimPrefix(line, headerPrefix)
	line = strings.TrimRight(line, "\r\n")

	name, value, ok = strings.Cut(line, ":")
	if !ok || name == "" {
		return "", "", false
	}
	return name, value, true
}
