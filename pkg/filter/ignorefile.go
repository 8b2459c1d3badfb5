package filter

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var (
	errEmptyPattern = errors.New("pattern is empty")
	errUnknownKind  = errors.New("unknown filter kind")
)

// LoadIgnoreFile reads a gitignore-style file and compiles it into a
// matcher usable with Set.WithIgnoreList. Blank lines and comments are
// dropped.
func LoadIgnoreFile(path string) (*ignore.GitIgnore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}

	return ignore.CompileIgnoreLines(lines...), nil
}
