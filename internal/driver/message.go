// Package driver implements the round-synchronous protocol driver
// described by spec.md §5: it drives a scheduler.Scheduler one round at a
// time and sends and receives one PrimitivesMessage per ordered peer
// pair. No message is fabricated for a peer that crashes mid-round: its
// inbound entries are left absent, and interpolation treats them as
// MISSING_SHARE.
package driver

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/primitives/internal/field"
	"github.com/luxfi/primitives/internal/party"
)

// wireTag prefixes every encoded message so a misrouted or corrupted
// stream is detected immediately rather than silently cbor-decoded into
// garbage, mirroring the defensive framing style of the teacher's own
// pkg/protocol.Message plumbing.
const wireTag = "SSPP_MSG"

// PrimitivesMessage is the single wire envelope exchanged between every
// ordered pair of peers once per round: the sender's identity, the round
// number it was produced for, and the flattened share vector the
// scheduler's CopyOutbound produced for the recipient.
type PrimitivesMessage struct {
	SenderID    party.ID        `cbor:"1,keyasint"`
	SenderIndex int             `cbor:"2,keyasint"`
	Data        []field.Element `cbor:"3,keyasint"`
}

// Encode serialises m as a 4-byte big-endian length prefix, the wireTag,
// and a cbor-encoded body, so a stream reader can frame messages without
// needing cbor's own streaming decoder.
func Encode(m *PrimitivesMessage) ([]byte, error) {
	body, err := cbor.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("driver: encoding message: %w", err)
	}
	buf := make([]byte, 4+len(wireTag)+len(body))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(wireTag)+len(body)))
	copy(buf[4:4+len(wireTag)], wireTag)
	copy(buf[4+len(wireTag):], body)
	return buf, nil
}

// Decode is the inverse of Encode, validating the length prefix and tag
// before handing the body to cbor.
func Decode(buf []byte) (*PrimitivesMessage, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("driver: message too short for length prefix")
	}
	n := binary.BigEndian.Uint32(buf[0:4])
	rest := buf[4:]
	if uint32(len(rest)) != n {
		return nil, fmt.Errorf("driver: length prefix %d does not match payload %d", n, len(rest))
	}
	if len(rest) < len(wireTag) || !bytes.Equal(rest[:len(wireTag)], []byte(wireTag)) {
		return nil, fmt.Errorf("driver: missing or corrupt %q wire tag", wireTag)
	}
	var m PrimitivesMessage
	if err := cbor.Unmarshal(rest[len(wireTag):], &m); err != nil {
		return nil, fmt.Errorf("driver: decoding message: %w", err)
	}
	return &m, nil
}
