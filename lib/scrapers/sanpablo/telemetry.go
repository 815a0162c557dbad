package sanpablo

import (
	"farmaprice-backend/lib/restyutil"
)

var restyInstrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput dumps every storefront exchange of clients
// created after the call. The cart shares the session client the
// catalog client instruments, so its traffic is captured too.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
