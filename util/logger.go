package util

import (
	"log"
	"os"
	"strings"
)

var monitorLogger *log.Logger

func init() {
	monitorLogger = log.New(os.Stdout, "[MONITOR] ", log.LstdFlags|log.Lmsgprefix)
}

// MonitorLogf records an operational event from the observation pipeline.
// The pipeline is best-effort, so failures end up here instead of in the
// response path.
func MonitorLogf(format string, args ...interface{}) {
	monitorLogger.Printf(format, args...)
}

// SanitizeLogValue removes newlines and other characters that could break log
// parsing, and truncates very long attacker-controlled values.
func SanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// GetMonitorLoggerForTest returns the current monitor logger for testing purposes.
func GetMonitorLoggerForTest() *log.Logger {
	return monitorLogger
}

// SetMonitorLoggerForTest sets a custom logger for testing purposes.
func SetMonitorLoggerForTest(logger *log.Logger) {
	monitorLogger = logger
}
