package mysql

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the seam this package logs through. The default
// implementation is backed by logrus; callers that already have a
// logging pipeline can install their own via SetLogger.
type Logger interface {
	Print(v ...interface{})
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l logrusLogger) Print(v ...interface{}) {
	l.entry.Print(v...)
}

func newDefaultLogger() Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logrusLogger{entry: logrus.NewEntry(log).WithField("component", "mysql")}
}

var pkgLog = newDefaultLogger()

// SetLogger installs the Logger used for connection and pool
// lifecycle messages. The initial logger writes to stderr via logrus.
func SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	pkgLog = logger
}
