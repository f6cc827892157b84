// Package logging builds the slog handler selected by config.LoggingConfig.
package logging
