package protocol

import (
	"walkabout/server/internal/world"
)

// Wire discriminants. Every frame carries one in its "type" field.
const (
	TypeState        = "state"
	TypeConnected    = "connected"
	TypeDisconnected = "disconnected"
	TypeIDAssignment = "id_assignment"
	TypeNameAccepted = "name_accepted"
	TypeNameRejected = "name_rejected"

	TypeMove    = "move"
	TypeSetName = "set_name"
)

// ServerMessage is the closed set of payloads the server pushes to clients.
// Implementations live in this package only.
type ServerMessage interface {
	// prepare fills the discriminant and stamps the timecode when the
	// caller left it zero.
	prepare(now uint32)
}

// StateMessage carries a full or delta snapshot of player state.
type StateMessage struct {
	Type    string              `json:"type" msgpack:"type"`
	Players []world.PlayerState `json:"players" msgpack:"players"`
	T       uint32              `json:"t" msgpack:"t"`
}

func (m *StateMessage) prepare(now uint32) {
	m.Type = TypeState
	if m.T == 0 {
		m.T = now
	}
}

// ConnectedMessage announces a new player to everyone already present.
type ConnectedMessage struct {
	Type     string `json:"type" msgpack:"type"`
	PlayerID string `json:"playerId" msgpack:"playerId"`
	T        uint32 `json:"t" msgpack:"t"`
}

func (m *ConnectedMessage) prepare(now uint32) {
	m.Type = TypeConnected
	if m.T == 0 {
		m.T = now
	}
}

// DisconnectedMessage announces that a player left.
type DisconnectedMessage struct {
	Type     string `json:"type" msgpack:"type"`
	PlayerID string `json:"playerId" msgpack:"playerId"`
	T        uint32 `json:"t" msgpack:"t"`
}

func (m *DisconnectedMessage) prepare(now uint32) {
	m.Type = TypeDisconnected
	if m.T == 0 {
		m.T = now
	}
}

// IDAssignmentMessage tells a freshly connected client which identity it was
// given. Sent once, to that client only.
type IDAssignmentMessage struct {
	Type     string `json:"type" msgpack:"type"`
	PlayerID string `json:"playerId" msgpack:"playerId"`
	T        uint32 `json:"t" msgpack:"t"`
}

func (m *IDAssignmentMessage) prepare(now uint32) {
	m.Type = TypeIDAssignment
	if m.T == 0 {
		m.T = now
	}
}

// NameAcceptedMessage confirms a name claim to the requesting client.
type NameAcceptedMessage struct {
	Type string `json:"type" msgpack:"type"`
	T    uint32 `json:"t" msgpack:"t"`
}

func (m *NameAcceptedMessage) prepare(now uint32) {
	m.Type = TypeNameAccepted
	if m.T == 0 {
		m.T = now
	}
}

// NameRejectedMessage refuses a name claim, with a reason the client can show.
type NameRejectedMessage struct {
	Type   string `json:"type" msgpack:"type"`
	Reason string `json:"reason" msgpack:"reason"`
	T      uint32 `json:"t" msgpack:"t"`
}

func (m *NameRejectedMessage) prepare(now uint32) {
	m.Type = TypeNameRejected
	if m.T == 0 {
		m.T = now
	}
}

// ClientMessage is the closed set of commands a client may send.
type ClientMessage interface {
	prepareClient()
}

// MoveCommand reports the client's own position. T is a client-supplied
// timecode carried through untouched; the server never checks it against its
// own clock.
type MoveCommand struct {
	Type string   `json:"type" msgpack:"type"`
	X    float64  `json:"x" msgpack:"x"`
	Z    float64  `json:"z" msgpack:"z"`
	Rot  *float64 `json:"rot,omitempty" msgpack:"rot,omitempty"`
	T    uint32   `json:"t" msgpack:"t"`
}

func (m *MoveCommand) prepareClient() { m.Type = TypeMove }

// SetNameCommand asks the server to claim a display name.
type SetNameCommand struct {
	Type string `json:"type" msgpack:"type"`
	Name string `json:"name" msgpack:"name"`
}

func (m *SetNameCommand) prepareClient() { m.Type = TypeSetName }
