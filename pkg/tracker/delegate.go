package tracker

import (
	"github.com/engagekit/tracker/pkg/tracker/app"
	"github.com/engagekit/tracker/pkg/tracker/transmit"
)

// Delegate observes the delivery lifecycle of tracking tasks.
type Delegate = transmit.Delegate

// SetDelegate installs a process-wide delivery observer. The delegate is
// picked up by transmitters constructed afterwards and propagated to the
// active one, if any. Passing nil clears it.
//
// Safe to call at any point relative to app.Setup: Setup re-reads the
// slot after publishing its transmitter, so the last SetDelegate always
// wins regardless of interleaving.
func SetDelegate(d Delegate) {
	transmit.SetDefaultDelegate(d)
	if a := app.Shared(); a != nil {
		a.Transmitter().SetDelegate(d)
	}
}

// CurrentDelegate returns the process-wide delivery observer, or nil.
func CurrentDelegate() Delegate {
	return transmit.DefaultDelegate()
}
