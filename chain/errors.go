package chain

import "github.com/grekinsky/lorachain-sub002/lorerr"

var errBadUnlock = lorerr.Validationf("chain: malformed unlock script")

// BadTxError carries a rejected transaction's index and reason. Apply
// does not return this type: its failures are the Validation-kind
// BadLink, BadMerkle, BadPoW and BadTimestamp errors below, and BadTx
// failures as *wrappedBadTx (index available through its Index method).
type BadTxError struct {
	Index  int
	Reason string
}

func (e *BadTxError) Error() string { return e.Reason }

func badLink(msg string) error      { return lorerr.Validationf("BadLink: %s", msg) }
func badMerkle(msg string) error    { return lorerr.Validationf("BadMerkle: %s", msg) }
func badPoW(msg string) error       { return lorerr.Validationf("BadPoW: %s", msg) }
func badTimestamp(msg string) error { return lorerr.Validationf("BadTimestamp: %s", msg) }
func badTx(index int, reason string) error {
	return &wrappedBadTx{index: index, reason: reason}
}

type wrappedBadTx struct {
	index  int
	reason string
}

func (e *wrappedBadTx) Error() string {
	return "BadTx: " + e.reason
}

func (e *wrappedBadTx) Kind() lorerr.Kind { return lorerr.Validation }

func (e *wrappedBadTx) Index() int { return e.index }
