package util

import (
	"testing"
	"time"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("VENDAZAP_TEST_STR", "set")
	if got := EnvOrDefault("VENDAZAP_TEST_STR", "fallback"); got != "set" {
		t.Errorf("EnvOrDefault = %q, want set", got)
	}
	if got := EnvOrDefault("VENDAZAP_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("EnvOrDefault = %q, want fallback", got)
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("VENDAZAP_TEST_INT", "10")
	if got := ParseIntEnv("VENDAZAP_TEST_INT", 5); got != 10 {
		t.Errorf("ParseIntEnv = %d, want 10", got)
	}
	t.Setenv("VENDAZAP_TEST_INT", "not-a-number")
	if got := ParseIntEnv("VENDAZAP_TEST_INT", 5); got != 5 {
		t.Errorf("ParseIntEnv with invalid value = %d, want default 5", got)
	}
	if got := ParseIntEnv("VENDAZAP_TEST_INT_UNSET", 5); got != 5 {
		t.Errorf("ParseIntEnv unset = %d, want default 5", got)
	}
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("VENDAZAP_TEST_DUR", "30m")
	if got := ParseDurationEnv("VENDAZAP_TEST_DUR", time.Hour); got != 30*time.Minute {
		t.Errorf("ParseDurationEnv = %v, want 30m", got)
	}
	t.Setenv("VENDAZAP_TEST_DUR", "soon")
	if got := ParseDurationEnv("VENDAZAP_TEST_DUR", time.Hour); got != time.Hour {
		t.Errorf("ParseDurationEnv with invalid value = %v, want default 1h", got)
	}
}
