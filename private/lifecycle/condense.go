// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package lifecycle

import (
	"bufio"
	"bytes"
)

// condenseStack reduces a full goroutine dump to one function per line so
// that a slow close can be logged without flooding the output.
func condenseStack(buf []byte) (out []byte) {
	// malformed input is logged as is.
	defer func() {
		if recover() != nil {
			out = buf
		}
	}()

	lines := bufio.NewScanner(bytes.NewReader(buf))
	lines.Buffer(make([]byte, 0, 64*1024), len(buf)+1)
	skipCreator := false

	for lines.Scan() {
		line := lines.Bytes()
		if skipCreator {
			skipCreator = false
			continue
		}

		switch {
		case len(line) == 0:
			out = append(out, '\n')

		case bytes.HasPrefix(line, []byte("goroutine ")):
			const prefix = len("goroutine ")
			end := bytes.IndexByte(line[prefix:], ' ')
			if end >= 0 {
				line = line[:prefix+end]
			}
			out = append(out, line...)
			out = append(out, '\n')

		case line[0] == '\t':
			// file:line +offset
			line = line[bytes.LastIndexByte(line, ':')+1:]
			if n := bytes.IndexByte(line, ' '); n >= 0 {
				line = line[:n]
			}
			out = append(out, line...)
			out = append(out, '\n')

		case bytes.HasPrefix(line, []byte("created by")):
			skipCreator = true

		default:
			if n := bytes.LastIndexByte(line, '('); n >= 0 {
				line = line[:n]
			}
			out = append(out, '\t')
			out = append(out, line...)
			out = append(out, ':')
		}
	}

	if lines.Err() != nil {
		return buf
	}
	return out
}
