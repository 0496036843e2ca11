package sky

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParseSourceFile reads a file of source positions, one per line, each line
// holding a right ascension and declination separated by whitespace. Lines
// starting with '#' and blank lines are skipped. Both decimal degrees and
// sexagesimal values are accepted:
//
//	1:34:56 -45:12:30
//	320.20 -43.5
func ParseSourceFile(path string) ([]Coord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source list %s: %w", path, err)
	}
	defer f.Close()

	var sources []Coord
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		coord, err := ParseCoord(parts[0], parts[1])
		if err != nil {
			return nil, fmt.Errorf("source list %s line %d: %w", path, lineNo, err)
		}
		sources = append(sources, coord)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source list %s: %w", path, err)
	}
	return sources, nil
}
