package backend

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/thushan/qlite/internal/core/domain"
)

// SplitJSONLines is a bufio.SplitFunc for newline delimited JSON where a
// logical line ends with a closing brace followed by a line break (LF or
// CRLF). Anything after the last boundary is held back until more data
// arrives.
func SplitJSONLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for start := 0; ; {
		i := bytes.IndexByte(data[start:], '\n')
		if i < 0 {
			break
		}
		i += start

		end := i
		if end > 0 && data[end-1] == '\r' {
			end--
		}
		if end > 0 && data[end-1] == '}' {
			return i + 1, data[:end], nil
		}
		start = i + 1
	}

	if atEOF {
		// the final line may not be newline terminated
		return len(data), bytes.TrimSpace(data), nil
	}
	return 0, nil, nil
}

// lineHandler processes one logical line. done ends the stream cleanly.
type lineHandler func(line []byte) (done bool, err error)

// relayLines reads r through split, one bounded buffer at a time, until a
// handler reports done, the body ends or something fails.
func relayLines(r io.Reader, split bufio.SplitFunc, maxLine int, handle lineHandler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)
	scanner.Split(split)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		done, err := handle(line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("%w: stream line over %d bytes", domain.ErrResponseTooLarge, maxLine)
		}
		return err
	}
	// backend closed without a done marker, treat as the end of the stream
	return nil
}
