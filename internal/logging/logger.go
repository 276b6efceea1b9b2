package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger
var decisionLogger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
	})
	logger.SetLevel(logrus.InfoLevel)

	decisionLogger = logrus.New()
	decisionLogger.SetOutput(os.Stdout)
	decisionLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "time",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "decision_msg",
		},
	})
	decisionLogger.SetLevel(logrus.InfoLevel)
}

// GetLogger returns the general-purpose supervisor logger.
func GetLogger() *logrus.Logger {
	return logger
}

// GetDecisionLogger returns the logger used for per-tick policy decisions,
// kept separate so a downstream pipeline can filter decisions from lifecycle noise.
func GetDecisionLogger() *logrus.Logger {
	return decisionLogger
}

func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(logLevel)
	decisionLogger.SetLevel(logLevel)
	return nil
}
