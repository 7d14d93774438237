package testlib

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

type testingWriter struct {
	tb testing.TB
}

func (w *testingWriter) Write(b []byte) (int, error) {
	w.tb.Log(string(b))
	return len(b), nil
}

// MakeLogger creates a logger that routes output through the test harness.
func MakeLogger(tb testing.TB) log.FieldLogger {
	logger := log.New()
	logger.SetOutput(&testingWriter{tb})
	logger.SetLevel(log.TraceLevel)

	return logger
}
