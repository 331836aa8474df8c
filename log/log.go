// Package log provides the shared logger used across the sidequest packages.
package log

import "github.com/sirupsen/logrus"

// Logger is the package-wide logger. Applications embedding sidequest may
// reconfigure its formatter, level, or output before dispatching or running
// workers.
var Logger = logrus.New()

// WithField is a convenience shorthand for Logger.WithField.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}
