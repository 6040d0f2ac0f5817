// Package obslog provides strata's structured logging facade: a thin
// wrapper over logrus giving every package in the module the same
// leveled, fielded logger without each one constructing its own.
//
// Grounded on original_source's use of structlog
// (`_logger = structlog.get_logger(__name__)`, then
// `_logger.info("syncing layer", digest=...)`), translated to Go's
// idiomatic equivalent: a package-level *logrus.Logger plus
// WithField/WithFields for structured key-value context, the same
// shape original_source's bound logger calls take.
package obslog

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu   sync.Mutex
	base = newDefault()
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Default returns the process-wide logger instance.
func Default() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

// SetLevel adjusts the default logger's verbosity, used by the CLI's
// --verbose flag.
func SetLevel(level logrus.Level) {
	mu.Lock()
	defer mu.Unlock()
	base.SetLevel(level)
}

// WithField is a convenience wrapper around Default().WithField, the
// call shape most packages in strata use.
func WithField(key string, value interface{}) *logrus.Entry {
	return Default().WithField(key, value)
}
