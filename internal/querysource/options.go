package querysource

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithSeed makes sampling deterministic. A zero seed keeps the source unseeded.
func WithSeed(seed int64) Option {
	return func(s *Source) {
		if seed != 0 {
			s.seed = seed
			s.seeded = true
		}
	}
}

// WithLimit bounds the total number of queries handed out. Zero or negative
// means unbounded.
func WithLimit(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.limit = n
		}
	}
}
