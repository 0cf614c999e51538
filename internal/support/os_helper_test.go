package support

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("HIVETRAP_TEST_KEY", "set")
	if got := GetEnv("HIVETRAP_TEST_KEY", "fallback"); got != "set" {
		t.Fatalf("GetEnv = %q, want %q", got, "set")
	}
	if got := GetEnv("HIVETRAP_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv fallback = %q, want %q", got, "fallback")
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("HIVETRAP_TEST_INT", "42")
	if got := GetEnvInt("HIVETRAP_TEST_INT", 7); got != 42 {
		t.Fatalf("GetEnvInt = %d, want 42", got)
	}

	t.Setenv("HIVETRAP_TEST_INT", "not-a-number")
	if got := GetEnvInt("HIVETRAP_TEST_INT", 7); got != 7 {
		t.Fatalf("GetEnvInt malformed = %d, want 7", got)
	}
}
