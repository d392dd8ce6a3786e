package analysis

import (
	"sort"

	"fwpanel/internal/models"
)

// SourceStat aggregates the packets of one source address within a batch.
type SourceStat struct {
	IP      string
	Packets int
	Threats int
	Bytes   int
}

// ProtocolStat holds stats for a single protocol.
type ProtocolStat struct {
	Protocol string
	Count    int64
	Threats  int64
}

// Summary describes one classified batch. It is derived, never stored.
type Summary struct {
	Total       int
	Threats     int
	ThreatBytes int
	Sources     []SourceStat
	Protocols   []ProtocolStat
}

// Summarize folds a positionally correlated batch into per-source and
// per-protocol statistics. Extra entries on either side are ignored; callers
// are expected to have validated lengths already.
func Summarize(predictions []int, packets []models.PacketRecord) Summary {
	n := len(predictions)
	if len(packets) < n {
		n = len(packets)
	}

	sources := make(map[string]*SourceStat)
	protocols := make(map[string]*ProtocolStat)
	sum := Summary{Total: n}

	for i := 0; i < n; i++ {
		pkt := packets[i]
		threat := predictions[i] == 1
		length, _ := pkt.Length.Int()

		ip := pkt.SrcIP.String()
		if ip == "" {
			ip = "Unknown"
		}
		src, ok := sources[ip]
		if !ok {
			src = &SourceStat{IP: ip}
			sources[ip] = src
		}
		src.Packets++
		src.Bytes += length

		proto := pkt.ProtocolName()
		ps, ok := protocols[proto]
		if !ok {
			ps = &ProtocolStat{Protocol: proto}
			protocols[proto] = ps
		}
		ps.Count++

		if threat {
			sum.Threats++
			sum.ThreatBytes += length
			src.Threats++
			ps.Threats++
		}
	}

	sum.Sources = make([]SourceStat, 0, len(sources))
	for _, s := range sources {
		sum.Sources = append(sum.Sources, *s)
	}
	// Threat count first, then volume, then address for a stable order.
	sort.Slice(sum.Sources, func(i, j int) bool {
		a, b := sum.Sources[i], sum.Sources[j]
		if a.Threats != b.Threats {
			return a.Threats > b.Threats
		}
		if a.Packets != b.Packets {
			return a.Packets > b.Packets
		}
		return a.IP < b.IP
	})

	sum.Protocols = make([]ProtocolStat, 0, len(protocols))
	for _, p := range protocols {
		sum.Protocols = append(sum.Protocols, *p)
	}
	sort.Slice(sum.Protocols, func(i, j int) bool {
		if sum.Protocols[i].Count != sum.Protocols[j].Count {
			return sum.Protocols[i].Count > sum.Protocols[j].Count
		}
		return sum.Protocols[i].Protocol < sum.Protocols[j].Protocol
	})

	return sum
}

// ThreatSources returns up to limit sources with at least one threat.
func (s Summary) ThreatSources(limit int) []SourceStat {
	if limit <= 0 {
		return nil
	}
	out := make([]SourceStat, 0, limit)
	for _, src := range s.Sources {
		if src.Threats == 0 || len(out) == limit {
			break
		}
		out = append(out, src)
	}
	return out
}

// ThreatRatio is the share of threat packets in the batch, 0 for an empty batch.
func (s Summary) ThreatRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Threats) / float64(s.Total)
}
