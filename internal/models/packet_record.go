package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/gopacket/layers"
)

// Value is a free-form packet attribute. The classifier sends these untyped,
// so strings, numbers and booleans are all kept in their textual form.
type Value string

// UnmarshalJSON accepts any JSON scalar. null decodes to the empty Value;
// objects and arrays are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = ""
		return nil
	}
	switch trimmed[0] {
	case '{', '[':
		return fmt.Errorf("packet field must be a scalar, got %s", trimmed)
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	*v = Value(trimmed)
	return nil
}

func (v Value) String() string {
	return string(v)
}

// Int parses the value as a whole number. Float renderings such as "443.0"
// are accepted as long as they carry no fractional part.
func (v Value) Int() (int, bool) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// PacketRecord is one classified packet as reported by the capture backend.
type PacketRecord struct {
	SrcIP    Value `json:"Source IP"`
	DstIP    Value `json:"Destination IP"`
	Protocol Value `json:"Protocol"`
	SrcPort  Value `json:"Source Port"`
	DstPort  Value `json:"Destination Port"`
	Length   Value `json:"Packet Length"`
}

// ProtocolName returns a readable protocol. Backends often send the IP
// protocol number (6, 17, ...), which is mapped through gopacket's table.
func (p PacketRecord) ProtocolName() string {
	raw := strings.TrimSpace(p.Protocol.String())
	if raw == "" {
		return "Unknown"
	}
	n, ok := p.Protocol.Int()
	if !ok {
		return strings.ToUpper(raw)
	}
	if n < 0 || n > 255 {
		return raw
	}
	name := layers.IPProtocol(n).String()
	if strings.HasPrefix(name, "Unknown") {
		return raw
	}
	return name
}
