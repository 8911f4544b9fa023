package aggregate

// DefaultTopK is the number of leading identifiers compared for correctness.
const DefaultTopK = 10

type options struct {
	topK       int
	pricePerGB float64
}

// Option applies a configuration option to an aggregation.
type Option func(*options)

// WithTopK sets how many leading identifiers are compared.
func WithTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithPricePerGB sets the traffic price. Zero leaves cost unknown.
func WithPricePerGB(p float64) Option {
	return func(o *options) {
		if p > 0 {
			o.pricePerGB = p
		}
	}
}

func newOptions(opts []Option) options {
	o := options{topK: DefaultTopK}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
