package logging

import "testing"

// ResetForTest installs a logger writing to dir for the duration of t.
func ResetForTest(t *testing.T, dir, env, level string, retentionWeeks int, maxFileSize int64) {
	t.Helper()

	InitLogger(Options{
		Dir:            dir,
		Env:            env,
		Level:          level,
		RetentionWeeks: retentionWeeks,
		MaxFileSize:    maxFileSize,
	})

	t.Cleanup(func() {
		_ = Close()
		serviceMu.Lock()
		DefaultLoggingService = nil
		serviceMu.Unlock()
	})
}
