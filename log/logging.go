package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = os.Stderr
	l.Level = logrus.InfoLevel
	return l
}

//Initialize sets up the logging interface from the given options.
//The returned closer releases the log file, if one was opened.
func Initialize(cfg Options) (io.Closer, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	switch cfg.Level {
	case LevelDebug:
		logger.Level = logrus.DebugLevel
	case LevelInfo:
		logger.Level = logrus.InfoLevel
	case LevelWarn:
		logger.Level = logrus.WarnLevel
	case LevelError:
		logger.Level = logrus.ErrorLevel
	}

	if cfg.Format == FormatJSON {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	if cfg.Path == "" {
		logger.Out = os.Stderr
		return nopCloser{}, nil
	}

	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file for writing: %w", err)
	}
	logger.Out = io.MultiWriter(os.Stderr, f)

	return f, nil
}

//Get returns the underlying logrus logger object
func Get() *logrus.Logger {
	return logger
}

//WithField starts an entry carrying a single structured field
func WithField(key string, value interface{}) *logrus.Entry {
	return logger.WithField(key, value)
}

//WithFields starts an entry carrying structured fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

//Debug logs a debug message
func Debug(args ...interface{}) {
	logger.Debug(args...)
}

//Debugf logs a debug message using formatting like fmt.Printf
func Debugf(str string, args ...interface{}) {
	logger.Debugf(str, args...)
}

//Info logs an info message
func Info(args ...interface{}) {
	logger.Info(args...)
}

//Infof logs an info message using formatting like fmt.Printf
func Infof(str string, args ...interface{}) {
	logger.Infof(str, args...)
}

//Warn logs a warning message
func Warn(args ...interface{}) {
	logger.Warn(args...)
}

//Warnf logs a warning message using formatting like fmt.Printf
func Warnf(str string, args ...interface{}) {
	logger.Warnf(str, args...)
}

//Error logs an error message
func Error(args ...interface{}) {
	logger.Error(args...)
}

//Errorf logs an error message using formatting like fmt.Printf
func Errorf(str string, args ...interface{}) {
	logger.Errorf(str, args...)
}

//Err logs an error message from an error object. The message is
//formatted like fmt.Printf, the last argument is the error.
//Example:
//	err := s.DeleteChannel(streamer, channel)
//	log.Err("failed deleting channel '%s'", channel, err)
func Err(msg string, args ...interface{}) {
	if len(args) == 0 {
		logger.Error(msg)
		return
	}

	logger.WithFields(logrus.Fields{
		"err": args[len(args)-1],
	}).Error(fmt.Sprintf(msg, args[:len(args)-1]...))
}
