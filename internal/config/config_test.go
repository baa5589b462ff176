package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)

	assert.Equal(t, "INTRODUCE", cfg.Scan.TargetID)
	assert.Equal(t, "상세정보 펼쳐보기", cfg.Scan.ExpandText)
	assert.Equal(t, 500*time.Millisecond, cfg.Scan.PollInterval)
	assert.Equal(t, 20, cfg.Scan.PollAttempts)
	assert.Equal(t, 10*time.Second, cfg.Scan.WaitTimeout)

	assert.Equal(t, "h3._22kNQuEXmb", cfg.Selectors().Name)
}

func TestPipelineMapping(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	pc := cfg.Pipeline()
	assert.Equal(t, cfg.Scan.TargetID, pc.TargetID)
	assert.Equal(t, cfg.Scan.ExpandText, pc.ExpandText)
	assert.Equal(t, cfg.Scan.PollAttempts, pc.PollAttempts)
}
