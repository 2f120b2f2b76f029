package logging

import (
	"io"
	"os"

	"github.com/labstack/gommon/log"
	"github.com/ziflex/lecho/v3"
)

// Logger writes structured log lines to stdout, and additionally to
// logFilePath when one is configured. The file is opened in append mode so
// history survives restarts; billing disputes get resolved from these logs
// weeks after the fact.
func Logger(logFilePath string) *lecho.Logger {
	output := io.Writer(os.Stdout)
	var openErr error
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			openErr = err
		} else {
			output = io.MultiWriter(os.Stdout, file)
		}
	}

	logger := lecho.New(
		output,
		lecho.WithLevel(log.DEBUG),
		lecho.WithTimestamp(),
		lecho.WithCaller(),
	)
	if openErr != nil {
		logger.Errorf("failed to open log file %s, logging to stdout only: %v", logFilePath, openErr)
	}
	return logger
}
