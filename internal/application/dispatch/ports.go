package dispatch

import "context"

// TxRunner runs fn inside a single transaction on the host's persistence
// connection. Stores that honor the transaction pick it up from the
// context fn receives. The gateway call itself is not a transactional
// resource: a crash between a successful provider call and commit leaves
// the gateway ahead of the local record, which this design accepts.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
