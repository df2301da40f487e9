package resultlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"sync"
)

var headingPattern = regexp.MustCompile(`^## \[(\d+)\.`)

// HitSet tracks candidate numbers already present in the result log.
type HitSet struct {
	mu   sync.Mutex
	seen map[int]struct{}
}

// NewHitSet creates a set seeded with ids.
func NewHitSet(ids ...int) *HitSet {
	s := &HitSet{seen: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
	return s
}

// Has reports whether n was recorded.
func (s *HitSet) Has(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[n]
	return ok
}

// Add inserts n and reports whether it was new.
func (s *HitSet) Add(n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[n]; ok {
		return false
	}
	s.seen[n] = struct{}{}
	return true
}

// Len is the number of recorded ids.
func (s *HitSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// ParseIdentifiers extracts candidate numbers from result log content. Both
// markdown heading lines and bare URLs matching urlPattern are recognized.
// Lines matching neither are ignored.
func ParseIdentifiers(r io.Reader, urlPattern *regexp.Regexp) ([]int, error) {
	var ids []int
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if id, ok := matchID(headingPattern, line); ok {
			ids = append(ids, id)
			continue
		}
		if urlPattern != nil {
			if id, ok := matchID(urlPattern, line); ok {
				ids = append(ids, id)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return ids, fmt.Errorf("scan result log: %w", err)
	}
	return ids, nil
}

func matchID(re *regexp.Regexp, line string) (int, bool) {
	m := re.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// LoadHitSet reads the result log at path. A missing file yields an empty set.
func LoadHitSet(path string, urlPattern *regexp.Regexp) (*HitSet, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied result path
	if errors.Is(err, fs.ErrNotExist) {
		return NewHitSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open result log %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	ids, err := ParseIdentifiers(f, urlPattern)
	if err != nil {
		return nil, err
	}
	return NewHitSet(ids...), nil
}
