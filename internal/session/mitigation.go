package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	fwerrors "fwpanel/internal/errors"
	"fwpanel/internal/metrics"
)

// MitigationFailedMessage is reported for every failed mitigation.
const MitigationFailedMessage = "Failed to drop packets."

// Outcome is the transient result of one mitigation request.
type Outcome struct {
	Address string
	OK      bool
	Message string
	Err     error
	At      time.Time
}

func mitigatedMessage(addr string) string {
	return fmt.Sprintf("Packets from %s have been dropped.", addr)
}

// Mitigate asks the backend to drop traffic from addr. It never reads or
// changes the capture session, so it may run alongside a capture and
// alongside other mitigations.
func (c *Controller) Mitigate(ctx context.Context, addr string) Outcome {
	if strings.TrimSpace(addr) == "" {
		return c.record(addr, fwerrors.New(fwerrors.KindValidation, "source address is empty"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.MitigationTimeout)
	defer cancel()

	_, err := bounded(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.mitigator.DropPackets(ctx, addr)
	})
	return c.record(addr, err)
}

// MitigateRow mitigates the source of row index in the current session.
// Only rows classified as threats can be mitigated.
func (c *Controller) MitigateRow(ctx context.Context, index int) Outcome {
	rows := c.Snapshot().Rows()
	if index < 0 || index >= len(rows) {
		return c.record("", fwerrors.Errorf(fwerrors.KindValidation, "no packet at row %d", index+1))
	}
	row := rows[index]
	if !row.Mitigable {
		return c.record(row.Packet.SrcIP.String(), fwerrors.Errorf(fwerrors.KindValidation, "packet %d is not a threat", row.Number()))
	}
	return c.Mitigate(ctx, row.Packet.SrcIP.String())
}

// Outcomes returns up to limit recent mitigation outcomes, newest last.
func (c *Controller) Outcomes(limit int) []Outcome {
	return c.outcomes.recent(limit)
}

func (c *Controller) record(addr string, err error) Outcome {
	o := Outcome{Address: addr, At: time.Now()}
	if err != nil {
		o.Message = MitigationFailedMessage
		o.Err = err
		c.logger.Warn("mitigation failed",
			"address", addr,
			"kind", fwerrors.GetKind(err).String(),
			"error", err)
	} else {
		o.OK = true
		o.Message = mitigatedMessage(addr)
		c.logger.Info("mitigation applied", "address", addr)
	}
	metrics.ObserveMitigation(o.OK)
	c.outcomes.add(o)
	return o
}
