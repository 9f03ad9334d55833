package engine

// Option configures the filter engine.
type Option func(*config)

type config struct {
	clusterColumn string
}

// DefaultClusterColumn is the categorical column the cluster filter reads.
const DefaultClusterColumn = "cluster"

// WithClusterColumn overrides the column the cluster filter applies to.
func WithClusterColumn(col string) Option {
	return func(c *config) {
		if col != "" {
			c.clusterColumn = col
		}
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{clusterColumn: DefaultClusterColumn}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
