package store

// Opts holds optional configuration for store implementations.
type Opts struct {
	// DSN is the data source name. Interpretation depends on the backend:
	// a file path for SQLite, a connection URL for Postgres and Redis.
	DSN string
}

// Option configures Opts.
type Option func(*Opts)

// WithDSN sets the data source name.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}
