package tracklistdna

import (
	"os"
	"testing"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// unsetEnv removes key for the rest of the test. Call t.Setenv on the key
// first so the original value is restored afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("Unsetenv(%s) failed: %v", key, err)
	}
}
