package vkrender

import (
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var logger atomic.Pointer[logrus.Logger]

func init() {
	l := logrus.New()
	l.SetOutput(io.Discard)
	logger.Store(l)
}

// SetLogger sets the logger used by the package. By default nothing is logged,
// passing nil restores that behavior.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.New()
		l.SetOutput(io.Discard)
	}
	logger.Store(l)
}

// Logger returns the logger used by the package.
func Logger() *logrus.Logger {
	return logger.Load()
}
