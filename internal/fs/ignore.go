package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-directory ignore file. Its patterns apply to
// the entries of the directory that contains it.
const IgnoreFileName = ".dpcignore"

// defaultIgnorePatterns are always applied regardless of config or .dpcignore.
var defaultIgnorePatterns = []string{IgnoreFileName}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern  string
	segments int  // number of path segments the pattern spans
	anchored bool // leading '/': matched against the whole absolute path
}

// IgnoreMatcher checks paths against a set of ignore patterns.
//   - Patterns without '/' match the basename.
//   - Patterns with an inner '/' match the same number of trailing path
//     segments, so "build/*.o" ignores any build/main.o.
//   - Patterns starting with '/' match the whole absolute path.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	return (&IgnoreMatcher{}).With(rawPatterns)
}

// With returns a matcher holding the patterns of m plus rawPatterns.
// m is not modified.
func (m *IgnoreMatcher) With(rawPatterns []string) *IgnoreMatcher {
	patterns := append([]ignorePattern(nil), m.patterns...)
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:  raw,
			segments: strings.Count(strings.Trim(raw, "/"), "/") + 1,
			anchored: strings.HasPrefix(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether path should be ignored.
func (m *IgnoreMatcher) Match(path string) bool {
	if len(m.patterns) == 0 || path == "" {
		return false
	}

	normalized := filepath.ToSlash(path)
	basename := filepath.Base(path)

	for _, p := range m.patterns {
		var subject string
		switch {
		case p.anchored:
			subject = normalized
		case p.segments == 1:
			subject = basename
		default:
			subject = trailingSegments(normalized, p.segments)
		}

		matched, err := filepath.Match(p.pattern, subject)
		if err != nil {
			// Bad pattern: skip it.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

func trailingSegments(path string, n int) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(parts) <= n {
		return strings.Join(parts, "/")
	}
	return strings.Join(parts[len(parts)-n:], "/")
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
