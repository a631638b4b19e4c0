package bridge

import (
	"context"

	"github.com/zkpool/zkpool/log"
	"github.com/zkpool/zkpool/pool"
	"github.com/zkpool/zkpool/types"
)

// LogSender is a MessageSender that only logs release orders. Nodes without
// an outbound ledger connection use it; an operator replays the logged
// releases from the stored receipts.
type LogSender struct{}

// SendRelease implements the MessageSender interface.
func (LogSender) SendRelease(_ context.Context, txHash types.HexBytes, release *pool.Release) error {
	fields := []any{
		"tx", txHash.String(),
		"recipient", release.Recipient.String(),
		"amount", release.Amount.MathBigInt().String(),
	}
	if release.Fee != nil {
		fields = append(fields, "relayer", release.Relayer.String(),
			"fee", release.Fee.MathBigInt().String())
	}
	log.Infow("release order pending manual dispatch", fields...)
	return nil
}
