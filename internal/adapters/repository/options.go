package repository

import "github.com/horizontool/horizon/internal/domain/series"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSeries preloads a table.
func WithSeries(table string, points series.Series) Option {
	return func(s *MemoryStore) {
		if table != "" {
			s.put(table, points)
		}
	}
}
