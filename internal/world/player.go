package world

// PlayerState is an immutable snapshot of one player's public fields. It is
// what goes over the wire; live entities never leave the store.
type PlayerState struct {
	ID       string  `json:"id" msgpack:"id"`
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Z        float64 `json:"z" msgpack:"z"`
	Rotation float64 `json:"rot" msgpack:"rot"`
	Name     string  `json:"name,omitempty" msgpack:"name,omitempty"`
}

// entity is the mutable backing record for one connected player. Only the
// store touches it, and only while holding the store mutex.
type entity struct {
	id       string
	x        float64
	y        float64
	z        float64
	rotation float64
	name     string
}

func (e *entity) snapshot() PlayerState {
	return PlayerState{
		ID:       e.id,
		X:        e.x,
		Y:        e.y,
		Z:        e.z,
		Rotation: e.rotation,
		Name:     e.name,
	}
}

// broadcastMark remembers the last x/z/rotation sent for an entity so the
// dissemination loop can skip players that have not moved.
type broadcastMark struct {
	x        float64
	z        float64
	rotation float64
}

func (e *entity) mark() broadcastMark {
	return broadcastMark{x: e.x, z: e.z, rotation: e.rotation}
}
