// Package querysource supplies the queries that drive probes.
package querysource

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"
)

// Defaults is used when no queries file is given.
var Defaults = []string{ //nolint:gochecknoglobals // built-in query set
	"weather tomorrow",
	"best pizza near me",
	"how to tie a tie",
	"latest football scores",
	"cheap flights to lisbon",
	"python list comprehension",
	"currency converter",
	"movie showtimes",
}

// Source samples queries uniformly with replacement. It is safe for
// concurrent use.
type Source struct {
	queries []string
	seed    int64
	seeded  bool
	limit   int

	mu     sync.Mutex
	rng    *rand.Rand
	handed int
}

// New creates a source over queries.
func New(queries []string, opts ...Option) (*Source, error) {
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	s := &Source{queries: append([]string(nil), queries...)}
	for _, opt := range opts {
		opt(s)
	}
	seed := s.seed
	if !s.seeded {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // sampling, not security
	return s, nil
}

// Load reads one query per line from path, ignoring blank lines. An empty
// path or a missing file yields Defaults.
func Load(path string, opts ...Option) (*Source, error) {
	if path == "" {
		return New(Defaults, opts...)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(Defaults, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadQueries, err)
	}
	queries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(queries, opts...)
}

// Parse splits text into trimmed, non-blank lines.
func Parse(data []byte) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			out = append(out, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadQueries, err)
	}
	if len(out) == 0 {
		return nil, ErrNoQueries
	}
	return out, nil
}

// Next returns the next sampled query, or false once the limit is reached.
func (s *Source) Next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit > 0 && s.handed >= s.limit {
		return "", false
	}
	s.handed++
	return s.queries[s.rng.Intn(len(s.queries))], true
}

// Queries returns the underlying query set.
func (s *Source) Queries() []string {
	return append([]string(nil), s.queries...)
}
