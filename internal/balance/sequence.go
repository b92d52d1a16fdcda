package balance

import (
	"strconv"
	"strings"
)

// NextSequence produces the display-sequence label that follows previous.
// An absent or unparseable previous label starts the numbering at 1.
// Sequences label new transactions for display only; they play no part in
// ledger ordering, which is driven by the When timestamp.
func NextSequence(previous string) int {
	seq, err := strconv.Atoi(strings.TrimSpace(previous))
	if err != nil {
		return 1
	}
	return seq + 1
}
