package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)
}

func Info(msg string, v ...interface{}) {
	log.Infof(msg, v...)
}

func Warn(msg string, v ...interface{}) {
	log.Warnf(msg, v...)
}

// Error logs msg with the error attached as a structured field. Extra values
// are appended printf-style to the message.
func Error(msg string, err error, v ...interface{}) {
	if err != nil {
		log.WithError(err).Errorf(msg, v...)
		return
	}
	log.Errorf(msg, v...)
}

func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(logrus.Fields(fields))
}
