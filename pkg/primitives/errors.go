package primitives

import (
	"fmt"

	"github.com/luxfi/primitives/internal/party"
)

// ProtocolError reports an invalid configuration -- an out-of-range
// bound, a degree outside the scheme's valid range -- caught synchronously
// by Config.Validate and NewEngine. Operation constructors do not return
// it and do not validate their arguments.
type ProtocolError struct {
	Op  string
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("primitives: protocol error in %s: %s", e.Op, e.Msg)
}

// PrimitivesError reports a failure to build the configured field in
// NewEngine. Faults during a round (insufficient shares to reconstruct,
// a framing error) are not of this type: RunRound returns them as
// wrapped errors from internal/driver and internal/operation.
type PrimitivesError struct {
	Op  string
	Err error
}

func (e *PrimitivesError) Error() string {
	return fmt.Sprintf("primitives: error in %s: %v", e.Op, e.Err)
}
func (e *PrimitivesError) Unwrap() error { return e.Err }

// PrivacyViolation is raised by the ConnectionManager seam (an external
// collaborator this module only declares the interface for) when the
// number of peers still reachable drops below the configured minimum
// needed to preserve the scheme's privacy guarantee.
type PrivacyViolation struct {
	Available int
	Required  int
	Missing   party.IDSlice
}

func (e *PrivacyViolation) Error() string {
	return fmt.Sprintf("primitives: privacy violation: %d peers available, %d required (missing: %v)", e.Available, e.Required, e.Missing)
}

// ConnectionManager is the external seam responsible for peer liveness
// tracking; its concrete implementation (heartbeats, TLS session
// management, reconnection) is out of this module's scope per spec.md's
// Non-goals. The engine only depends on being told, authoritatively,
// when privacy has been lost.
type ConnectionManager interface {
	// AvailablePeers returns the peers this connection manager currently
	// considers reachable.
	AvailablePeers() party.IDSlice
	// CheckPrivacy returns a *PrivacyViolation if the available peer
	// count has dropped below required, nil otherwise.
	CheckPrivacy(required int) error
}
