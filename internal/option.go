package internal

import "log/slog"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	root      string
	logger    *slog.Logger
	noHistory bool
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRoot sets the project directory holding the mirrored files.
func WithRoot(dir string) Option {
	return func(a *application) {
		a.root = dir
	}
}

// WithLogger sets the application logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithoutHistory skips opening the history database, for commands that
// never touch it.
func WithoutHistory() Option {
	return func(a *application) {
		a.noHistory = true
	}
}
