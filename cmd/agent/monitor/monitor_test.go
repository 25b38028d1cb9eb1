package monitor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsListContainsStr(t *testing.T) {
	assert.True(t, isListContainsStr(excludeNetInterfaces, "docker0"))
	assert.True(t, isListContainsStr(excludeNetInterfaces, "veth12ab"))
	assert.False(t, isListContainsStr(excludeNetInterfaces, "eth0"))
	assert.True(t, isListContainsStr(expectDiskFsTypes, "ext4"))
	assert.False(t, isListContainsStr(expectDiskFsTypes, "tmpfs"))
}

func TestCapture(t *testing.T) {
	c := &Collector{Mode: "local", Log: zap.NewNop()}
	p := c.Capture(context.Background())
	assert.Equal(t, "local", p.Capture.Mode)
	assert.Equal(t, Version, p.Capture.Version)
	assert.GreaterOrEqual(t, p.Data.CPU.UsagePercent, 0.0)
	assert.LessOrEqual(t, p.Data.Memory.UsagePercent, 1.0)
	for _, n := range p.Data.Net {
		assert.NotContains(t, n.Name, "docker")
	}
}
