package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		envValue     string
		defaultValue string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_GET_ENV_SET",
			envValue:     "custom_value",
			defaultValue: "default",
			want:         "custom_value",
		},
		{
			name:         "returns default when not set",
			key:          "TEST_GET_ENV_UNSET",
			envValue:     "",
			defaultValue: "default_value",
			want:         "default_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			got := GetEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Fatalf("GetEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("TEST_GET_ENV_INT", "42")
	defer os.Unsetenv("TEST_GET_ENV_INT")

	if got := GetEnvInt("TEST_GET_ENV_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := GetEnvInt("TEST_GET_ENV_INT_UNSET", 7); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}

	os.Setenv("TEST_GET_ENV_INT_BAD", "not-a-number")
	defer os.Unsetenv("TEST_GET_ENV_INT_BAD")
	if got := GetEnvInt("TEST_GET_ENV_INT_BAD", 7); got != 7 {
		t.Fatalf("expected default on parse failure, got %d", got)
	}
}

func TestGetEnvInt64(t *testing.T) {
	os.Setenv("TEST_GET_ENV_INT64", "9000000000")
	defer os.Unsetenv("TEST_GET_ENV_INT64")

	if got := GetEnvInt64("TEST_GET_ENV_INT64", 1); got != 9000000000 {
		t.Fatalf("expected 9000000000, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	os.Setenv("TEST_GET_ENV_BOOL", "true")
	defer os.Unsetenv("TEST_GET_ENV_BOOL")

	if !GetEnvBool("TEST_GET_ENV_BOOL", false) {
		t.Fatal("expected true")
	}
	if GetEnvBool("TEST_GET_ENV_BOOL_UNSET", false) {
		t.Fatal("expected default false")
	}
}

func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_GET_ENV_DURATION", "1500ms")
	defer os.Unsetenv("TEST_GET_ENV_DURATION")

	if got := GetEnvDuration("TEST_GET_ENV_DURATION", time.Second); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", got)
	}
	if got := GetEnvDuration("TEST_GET_ENV_DURATION_UNSET", time.Second); got != time.Second {
		t.Fatalf("expected default 1s, got %v", got)
	}
}
