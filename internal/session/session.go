package session

import (
	"slices"
	"time"

	"fwpanel/internal/models"
)

// Status is the phase of the current capture cycle.
type Status int

const (
	Idle Status = iota
	Capturing
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// ThreatBanner is raised once per cycle when any packet is a threat.
	ThreatBanner = "🚨 Suspicious Network Activity Detected!"
	// CaptureFailedMessage is shown for every capture failure, whatever the cause.
	CaptureFailedMessage = "Packet capture failed. Please try again."

	LabelNormal = "Normal"
	LabelThreat = "Threat"

	PredictionNormal = 0
	PredictionThreat = 1
)

// Snapshot is a read-only copy of the session at one point in time.
//
// When Status is Succeeded, Predictions and Packets have equal length and
// Predictions[i] classifies Packets[i].
type Snapshot struct {
	Status       Status
	Generation   uint64
	CaptureID    string
	Operator     string
	Predictions  []int
	Packets      []models.PacketRecord
	Banner       string
	ErrorMessage string
	// Err is the classified cause of a failure. It is meant for logs; the
	// operator only ever sees ErrorMessage.
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s Snapshot) clone() Snapshot {
	s.Predictions = slices.Clone(s.Predictions)
	s.Packets = slices.Clone(s.Packets)
	return s
}

// Row binds one packet to its classification.
type Row struct {
	Index      int
	Packet     models.PacketRecord
	Prediction int
	Label      string
	Mitigable  bool
}

// Number is the 1-based packet ID shown to the operator.
func (r Row) Number() int {
	return r.Index + 1
}

// LabelFor maps a prediction value to its display label.
func LabelFor(prediction int) string {
	if prediction == PredictionThreat {
		return LabelThreat
	}
	return LabelNormal
}

// Rows pairs packets and predictions by position. Only a succeeded session
// has rows.
func (s Snapshot) Rows() []Row {
	if s.Status != Succeeded {
		return nil
	}
	// Equal lengths are guaranteed for a Succeeded session; min only keeps a
	// hand-built Snapshot from indexing out of range.
	n := min(len(s.Predictions), len(s.Packets))
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		p := s.Predictions[i]
		rows[i] = Row{
			Index:      i,
			Packet:     s.Packets[i],
			Prediction: p,
			Label:      LabelFor(p),
			Mitigable:  p == PredictionThreat,
		}
	}
	return rows
}

// Counts is the Normal/Threat split of a batch.
type Counts struct {
	Normal int
	Threat int
}

// Total is the number of classified packets.
func (c Counts) Total() int {
	return c.Normal + c.Threat
}

// Counts tallies the predictions of the snapshot.
func (s Snapshot) Counts() Counts {
	var c Counts
	for _, p := range s.Predictions {
		switch p {
		case PredictionNormal:
			c.Normal++
		case PredictionThreat:
			c.Threat++
		}
	}
	return c
}

// HasResults reports whether there is a table to show.
func (s Snapshot) HasResults() bool {
	return s.Status == Succeeded && len(s.Predictions) > 0
}

func containsThreat(predictions []int) bool {
	return slices.Contains(predictions, PredictionThreat)
}
