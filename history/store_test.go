package history

import "testing"

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		cacheTTL int
		want     int
	}{
		{"ttl relative", "ttl+300", 3600, 3300},
		{"ttl relative small buffer", "ttl+60", 3600, 3540},
		{"ttl buffer exceeds ttl", "ttl+5000", 3600, 0},
		{"absolute seconds", "1800", 3600, 1800},
		{"malformed falls back", "not-a-number", 3600, 3300},
		{"malformed ttl suffix", "ttl+abc", 3600, 3300},
		{"empty falls back", "", 3600, 3300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSchedule(tt.schedule, tt.cacheTTL); got != tt.want {
				t.Errorf("ParseSchedule(%q, %d) = %d, want %d", tt.schedule, tt.cacheTTL, got, tt.want)
			}
		})
	}
}

func TestDefaultPersistenceConfig(t *testing.T) {
	cfg := DefaultPersistenceConfig()
	if cfg.Folder != "threads" {
		t.Errorf("default folder = %q, want threads", cfg.Folder)
	}
	if cfg.Schedule != "ttl+300" {
		t.Errorf("default schedule = %q, want ttl+300", cfg.Schedule)
	}
}
