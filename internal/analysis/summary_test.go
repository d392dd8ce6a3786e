package analysis

import (
	"testing"

	"fwpanel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkt(src, proto, length string) models.PacketRecord {
	return models.PacketRecord{
		SrcIP:    models.Value(src),
		DstIP:    "192.168.1.1",
		Protocol: models.Value(proto),
		Length:   models.Value(length),
	}
}

func TestSummarizeGroupsBySource(t *testing.T) {
	packets := []models.PacketRecord{
		pkt("10.0.0.5", "6", "100"),
		pkt("10.0.0.9", "17", "60"),
		pkt("10.0.0.5", "6", "1500"),
		pkt("10.0.0.7", "6", "40"),
	}
	predictions := []int{1, 0, 1, 1}

	sum := Summarize(predictions, packets)

	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 3, sum.Threats)
	assert.Equal(t, 1640, sum.ThreatBytes)
	assert.InDelta(t, 0.75, sum.ThreatRatio(), 1e-9)

	threats := sum.ThreatSources(10)
	require.Len(t, threats, 2)
	assert.Equal(t, "10.0.0.5", threats[0].IP)
	assert.Equal(t, 2, threats[0].Threats)
	assert.Equal(t, "10.0.0.7", threats[1].IP)

	require.Len(t, sum.Protocols, 2)
	assert.Equal(t, "TCP", sum.Protocols[0].Protocol)
	assert.Equal(t, int64(3), sum.Protocols[0].Count)
	assert.Equal(t, int64(3), sum.Protocols[0].Threats)
}

func TestSummarizeEmptyBatch(t *testing.T) {
	sum := Summarize(nil, nil)
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.ThreatRatio())
	assert.Empty(t, sum.ThreatSources(5))
}

func TestThreatSourcesLimit(t *testing.T) {
	packets := []models.PacketRecord{pkt("a", "6", "1"), pkt("b", "6", "1"), pkt("c", "6", "1")}
	sum := Summarize([]int{1, 1, 1}, packets)
	assert.Len(t, sum.ThreatSources(2), 2)
}

func TestPortLabel(t *testing.T) {
	assert.Equal(t, "443 (HTTPS)", PortLabel("443"))
	assert.Equal(t, "22 (SSH)", PortLabel("22.0"))
	assert.Equal(t, "n/a", PortLabel("n/a"))
	assert.Equal(t, "HTTP", GetServiceName(80))
}
