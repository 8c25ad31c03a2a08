package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(demo string) Config {
	return Config{
		Demo:        demo,
		LogLevel:    "info",
		LogFormat:   "text",
		Compression: "lz4",
	}
}

func TestDemos(t *testing.T) {
	for _, name := range demoNames() {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			cfg := testConfig(name)
			cfg.SnapshotDir = t.TempDir()
			require.NoError(t, run(context.Background(), cfg, &out))
			assert.Contains(t, out.String(), "demo="+name)
		})
	}
}

func TestRun_All(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig("all")
	cfg.Compression = "zstd"
	cfg.MemoryLimit = 1 << 20
	require.NoError(t, run(context.Background(), cfg, &out))

	for _, name := range demoNames() {
		assert.Contains(t, out.String(), "demo="+name)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown demo", testConfig("nope")},
		{"bad level", Config{Demo: "double_free", LogLevel: "loud", LogFormat: "text", Compression: "lz4"}},
		{"bad format", Config{Demo: "double_free", LogLevel: "info", LogFormat: "xml", Compression: "lz4"}},
		{"bad compression", Config{Demo: "double_free", LogLevel: "info", LogFormat: "text", Compression: "brotli"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(context.Background(), tt.cfg, &bytes.Buffer{}))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("REFDEMO_DEMO", "snapshot")
	t.Setenv("REFDEMO_LOG_FORMAT", "json")
	t.Setenv("REFDEMO_MEMORY_LIMIT", "4096")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "snapshot", cfg.Demo)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "lz4", cfg.Compression)
	assert.Equal(t, int64(4096), cfg.MemoryLimit)
}
