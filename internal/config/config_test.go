package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestValidateRejectsBadDetectionThreshold(t *testing.T) {
	c := Default()
	c.Detection.DetectionThreshold = 1.5
	assert.Error(t, Validate(c))
}

func TestValidateRejectsZeroWorkerCount(t *testing.T) {
	c := Default()
	c.Concurrency.WorkerThreadCount = 0
	assert.Error(t, Validate(c))
}

func TestValidateRejectsUnknownProtectionLevel(t *testing.T) {
	c := Default()
	c.Protection.DefaultProtectionLevel = "Ludicrous"
	assert.Error(t, Validate(c))
}
