package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrStream is returned when the server reports a failure inside the stream.
var ErrStream = errors.New("chat stream reported an error")

// ReadStream decodes a chat stream, calling onText for every "0:" fragment.
// Lines may arrive split across reads. Fragments that are not JSON strings are
// passed through verbatim.
func ReadStream(r io.Reader, onText func(string)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if perr := handleLine(strings.TrimRight(line, "\r\n"), onText); perr != nil {
				return perr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read chat stream: %w", err)
		}
	}
}

func handleLine(line string, onText func(string)) error {
	switch {
	case strings.HasPrefix(line, "0:"):
		onText(decodeFragment(line[2:]))
	case strings.HasPrefix(line, "3:"):
		return fmt.Errorf("%w: %s", ErrStream, decodeFragment(line[2:]))
	}
	return nil
}

func decodeFragment(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s
	}
	return raw
}
