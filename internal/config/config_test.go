package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Config
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: Config{
				ServiceURL:        "https://bsky.social",
				PollInterval:      30 * time.Second,
				RequestsPerSecond: 5,
				RequestTimeout:    30 * time.Second,
				Redis:             RedisConfig{Namespace: "default"},
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"SERVICE_URL":         "https://pds.example.com",
				"ACCESS_JWT":          "jwt",
				"POLL_INTERVAL":       "10s",
				"REQUESTS_PER_SECOND": "2.5",
				"REQUEST_TIMEOUT":     "5s",
				"REDIS_URL":           "redis://localhost:6379/0",
				"REDIS_NAMESPACE":     "alice",
			},
			want: Config{
				ServiceURL:        "https://pds.example.com",
				AccessJWT:         "jwt",
				PollInterval:      10 * time.Second,
				RequestsPerSecond: 2.5,
				RequestTimeout:    5 * time.Second,
				Redis:             RedisConfig{URL: "redis://localhost:6379/0", Namespace: "alice"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			got, err := Read()
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Read() mismatch (-want +got):\n%s", diff)
			}
			if got.Redis.Enabled() != (tt.want.Redis.URL != "") {
				t.Errorf("Redis.Enabled() = %v", got.Redis.Enabled())
			}
		})
	}
}
