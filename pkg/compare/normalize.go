package compare

import (
	"bytes"

	"github.com/sdejongh/diffnorris/pkg/filter"
)

// binarySniffSize is how many leading bytes are checked for a NUL byte to
// decide whether a file is binary. Binary files are never text-normalized.
const binarySniffSize = 4096

// isBinary applies a rough test: a NUL byte in the leading chunk marks the
// content as binary
func isBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffSize {
		n = binarySniffSize
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

// splitLines splits content on LF, CRLF and lone CR line endings. The
// terminators themselves are dropped, which is what makes the subsequent
// LF re-join normalize line-ending differences away.
func splitLines(content []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\n':
			lines = append(lines, content[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, content[start:i])
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

// joinLines joins lines with LF, optionally dropping blank lines
func joinLines(lines [][]byte, dropBlank bool) []byte {
	if dropBlank {
		kept := lines[:0]
		for _, line := range lines {
			if len(line) > 0 {
				kept = append(kept, line)
			}
		}
		lines = kept
	}
	return bytes.Join(lines, []byte{'\n'})
}

// normalize prepares text content for filtered comparison: line endings
// are normalized to LF, blank lines are optionally removed, then enabled
// text filters strip their matched spans. Blank-line removal runs again
// after filtering since filters may have emptied more lines.
func normalize(content []byte, filters *filter.Set, applyFilters, ignoreBlankLines bool) []byte {
	content = joinLines(splitLines(content), ignoreBlankLines)

	if applyFilters && filters != nil && filters.HasTextFilters() {
		content = filters.ApplyTextFilters(content)
		if ignoreBlankLines {
			content = joinLines(splitLines(content), true)
		}
	}

	return content
}
