package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{name: "Test1 OK", args: []string{"-a", "http://api:8080", "-g", "api:50051", "-w", "10", "-x", "60", "-l", "debug"},
			expected: &Config{APIBaseURL: "http://api:8080", HealthAddrGRPC: "api:50051", RequestTimeout: 10 * time.Second,
				TransferTimeout: time.Minute, LogLevel: "debug"}},
		{name: "Test2 uploader flags ignored", args: []string{"-song", "abc", "-file", "a.mp3", "-w", "3"},
			expected: &Config{RequestTimeout: 3 * time.Second}},
		{name: "Test3 incorrect timeout", args: []string{"-w", "abc"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			err := parseFlags(config, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
