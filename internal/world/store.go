package world

import (
	"errors"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const (
	// spawnRange bounds the random spawn coordinates: new players land
	// uniformly inside [-spawnRange, spawnRange] on both axes.
	spawnRange = 50.0

	// groundY is the fixed vertical coordinate. Clients cannot change it.
	groundY = 0.0
)

var (
	// ErrUnknownPlayer reports an operation against an id the store does
	// not hold, usually because a disconnect raced the request.
	ErrUnknownPlayer = errors.New("unknown player")

	// ErrEmptyName rejects a name claim with no usable name in it.
	ErrEmptyName = errors.New("empty name")

	// ErrNameTaken rejects a name claim when a different live player
	// already holds the name.
	ErrNameTaken = errors.New("name already taken")
)

// Spawn pins the coordinates of a new player. A nil Spawn means "pick a
// random spot".
type Spawn struct {
	X        float64
	Z        float64
	Rotation float64
}

// Store owns the authoritative set of connected players. All mutation and
// snapshot calls are safe for concurrent use; a single mutex serializes them,
// which also makes the release-then-claim step of SetName atomic.
type Store struct {
	mu       sync.Mutex
	logger   *zap.SugaredLogger
	rng      *rand.Rand
	entities map[string]*entity
	names    map[string]string // claimed name -> owning entity id
	lastSent map[string]broadcastMark
}

// NewStore creates an empty store. A nil logger is replaced with a no-op one.
func NewStore(logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		logger:   logger,
		entities: make(map[string]*entity),
		names:    make(map[string]string),
		lastSent: make(map[string]broadcastMark),
	}
}

// SetRand replaces the spawn-position source. Tests use it for determinism.
func (s *Store) SetRand(rng *rand.Rand) {
	s.mu.Lock()
	s.rng = rng
	s.mu.Unlock()
}

func (s *Store) randomCoord() float64 {
	if s.rng != nil {
		return (s.rng.Float64()*2 - 1) * spawnRange
	}
	return (rand.Float64()*2 - 1) * spawnRange
}

// AddPlayer registers a new player and returns its snapshot. Adding an id
// that is already present is a no-op that returns the existing state; it
// happens when duplicate connect events slip through and is not an error.
func (s *Store) AddPlayer(id string, at *Spawn) PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entities[id]; ok {
		s.logger.Warnw("duplicate add ignored", "player", id)
		return existing.snapshot()
	}

	e := &entity{id: id, y: groundY}
	if at != nil {
		e.x = at.X
		e.z = at.Z
		e.rotation = at.Rotation
	} else {
		e.x = s.randomCoord()
		e.z = s.randomCoord()
	}

	s.entities[id] = e
	s.lastSent[id] = e.mark()
	return e.snapshot()
}

// RemovePlayer drops a player, releasing its claimed name and broadcast mark.
// It returns false when the id is unknown; duplicate disconnect events make
// that a normal outcome.
func (s *Store) RemovePlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		s.logger.Debugw("remove for unknown player", "player", id)
		return false
	}
	if e.name != "" {
		delete(s.names, e.name)
	}
	delete(s.entities, id)
	delete(s.lastSent, id)
	return true
}

// UpdatePosition moves a player. A nil rotation keeps the current one; the
// vertical coordinate never changes. Unknown ids are logged and ignored;
// the session's entity may already be gone after a racing disconnect.
func (s *Store) UpdatePosition(id string, x, z float64, rotation *float64) (PlayerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		s.logger.Debugw("move for unknown player", "player", id)
		return PlayerState{}, false
	}
	e.x = x
	e.z = z
	if rotation != nil {
		e.rotation = *rotation
	}
	return e.snapshot(), true
}

// SetName claims a display name for a player. At most one live player holds
// any given name; claiming a new one releases the player's previous name
// first, all under the store mutex so concurrent claims cannot both win.
func (s *Store) SetName(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return ErrEmptyName
	}
	e, ok := s.entities[id]
	if !ok {
		return ErrUnknownPlayer
	}
	if owner, claimed := s.names[name]; claimed {
		if owner == id {
			return nil
		}
		return ErrNameTaken
	}
	if e.name != "" {
		delete(s.names, e.name)
	}
	s.names[name] = id
	e.name = name
	return nil
}

// Len reports the number of live players.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// SnapshotAll copies every live player, ordered by id.
func (s *Store) SnapshotAll() []PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotAllLocked()
}

func (s *Store) snapshotAllLocked() []PlayerState {
	players := make([]PlayerState, 0, len(s.entities))
	for _, e := range s.entities {
		players = append(players, e.snapshot())
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// SnapshotChanged copies every player whose x, z, or rotation moved since the
// last call, and advances the broadcast marks for the players it returns.
// The dissemination loop is the single consumer: calling it from more than
// one place per tick would swallow deltas.
func (s *Store) SnapshotChanged() []PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := make([]PlayerState, 0)
	for id, e := range s.entities {
		mark, ok := s.lastSent[id]
		if ok && mark == e.mark() {
			continue
		}
		s.lastSent[id] = e.mark()
		changed = append(changed, e.snapshot())
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].ID < changed[j].ID })
	return changed
}
