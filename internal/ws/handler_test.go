package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"walkabout/server/internal/hub"
	"walkabout/server/internal/protocol"
	"walkabout/server/internal/world"
)

type frame struct {
	Type     string              `json:"type" msgpack:"type"`
	PlayerID string              `json:"playerId" msgpack:"playerId"`
	Players  []world.PlayerState `json:"players" msgpack:"players"`
	Reason   string              `json:"reason" msgpack:"reason"`
	T        uint32              `json:"t" msgpack:"t"`
}

type testServer struct {
	hub  *hub.Hub
	loop *hub.Loop
	url  string
}

func newTestServer(t *testing.T, encoding protocol.Encoding, mode hub.Mode) *testServer {
	t.Helper()

	codec := protocol.NewCodec(encoding, protocol.NewClockAt(time.Now().Add(-time.Minute)))
	h := hub.New(world.NewStore(nil), codec, nil)
	loop := hub.NewLoop(h, hub.DefaultTickInterval, mode, nil)

	srv := httptest.NewServer(NewHandler(h, nil))
	t.Cleanup(srv.Close)

	return &testServer{
		hub:  h,
		loop: loop,
		url:  "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func dial(t *testing.T, ts *testServer) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(ts.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, encoding protocol.Encoding) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f frame
	if encoding == protocol.EncodingBinary {
		err = msgpack.Unmarshal(payload, &f)
	} else {
		err = json.Unmarshal(payload, &f)
	}
	if err != nil {
		t.Fatalf("parse frame %q: %v", payload, err)
	}
	return f
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, encoding protocol.Encoding, wantType string) frame {
	t.Helper()
	for i := 0; i < 20; i++ {
		f := readFrame(t, conn, encoding)
		if f.Type == wantType {
			return f
		}
	}
	t.Fatalf("no %s frame arrived", wantType)
	return frame{}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func findPlayer(players []world.PlayerState, id string) *world.PlayerState {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}

func TestEndToEndSync(t *testing.T) {
	ts := newTestServer(t, protocol.EncodingJSON, hub.ModeFull)

	// A connects: identity first, then a one-player snapshot.
	connA := dial(t, ts)
	idFrame := readFrame(t, connA, protocol.EncodingJSON)
	if idFrame.Type != protocol.TypeIDAssignment || idFrame.PlayerID == "" {
		t.Fatalf("expected id_assignment, got %+v", idFrame)
	}
	idA := idFrame.PlayerID
	stateFrame := readFrame(t, connA, protocol.EncodingJSON)
	if stateFrame.Type != protocol.TypeState || len(stateFrame.Players) != 1 {
		t.Fatalf("expected one-player state, got %+v", stateFrame)
	}

	// B connects: A hears connected{B}, B gets a two-player snapshot.
	connB := dial(t, ts)
	idB := readFrame(t, connB, protocol.EncodingJSON).PlayerID
	if stateB := readFrame(t, connB, protocol.EncodingJSON); len(stateB.Players) != 2 {
		t.Fatalf("expected two-player state for B, got %+v", stateB)
	}
	connectedFrame := readUntil(t, connA, protocol.EncodingJSON, protocol.TypeConnected)
	if connectedFrame.PlayerID != idB {
		t.Fatalf("expected connected{%s}, got %+v", idB, connectedFrame)
	}

	// B moves; the next tick's broadcast carries the new position and A's
	// unchanged one.
	if err := connB.WriteMessage(websocket.TextMessage, []byte(`{"type":"move","x":10,"z":5,"rot":90}`)); err != nil {
		t.Fatalf("write move: %v", err)
	}
	waitFor(t, func() bool {
		p := findPlayer(ts.hub.Store().SnapshotAll(), idB)
		return p != nil && p.X == 10
	}, "B's move to land")

	ts.loop.Tick()

	tickFrame := readUntil(t, connA, protocol.EncodingJSON, protocol.TypeState)
	movedB := findPlayer(tickFrame.Players, idB)
	if movedB == nil || movedB.X != 10 || movedB.Z != 5 || movedB.Rotation != 90 {
		t.Fatalf("broadcast misses B's move: %+v", tickFrame.Players)
	}
	unchangedA := findPlayer(tickFrame.Players, idA)
	if unchangedA == nil || unchangedA.X != stateFrame.Players[0].X {
		t.Fatalf("broadcast corrupted A's state: %+v", tickFrame.Players)
	}

	// A leaves: B is told, and A vanishes from later snapshots.
	connA.Close()
	disconnectedFrame := readUntil(t, connB, protocol.EncodingJSON, protocol.TypeDisconnected)
	if disconnectedFrame.PlayerID != idA {
		t.Fatalf("expected disconnected{%s}, got %+v", idA, disconnectedFrame)
	}

	waitFor(t, func() bool { return ts.hub.Store().Len() == 1 }, "A's removal")
	ts.loop.Tick()
	finalFrame := readUntil(t, connB, protocol.EncodingJSON, protocol.TypeState)
	if findPlayer(finalFrame.Players, idA) != nil {
		t.Fatalf("A still present after disconnect: %+v", finalFrame.Players)
	}
}

func TestEndToEndBinaryEncoding(t *testing.T) {
	ts := newTestServer(t, protocol.EncodingBinary, hub.ModeFull)

	conn := dial(t, ts)
	idFrame := readFrame(t, conn, protocol.EncodingBinary)
	if idFrame.Type != protocol.TypeIDAssignment || idFrame.PlayerID == "" {
		t.Fatalf("expected id_assignment, got %+v", idFrame)
	}
	stateFrame := readFrame(t, conn, protocol.EncodingBinary)
	if stateFrame.Type != protocol.TypeState || len(stateFrame.Players) != 1 {
		t.Fatalf("expected one-player state, got %+v", stateFrame)
	}

	// Binary frames carry binary commands too.
	move, err := msgpack.Marshal(map[string]any{"type": "move", "x": 3.0, "z": 4.0, "rot": 45.0})
	if err != nil {
		t.Fatalf("marshal move: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, move); err != nil {
		t.Fatalf("write move: %v", err)
	}
	waitFor(t, func() bool {
		players := ts.hub.Store().SnapshotAll()
		return len(players) == 1 && players[0].X == 3
	}, "binary move to land")
}

func TestNameClaimOverWebsocket(t *testing.T) {
	ts := newTestServer(t, protocol.EncodingJSON, hub.ModeDelta)

	connA := dial(t, ts)
	readFrame(t, connA, protocol.EncodingJSON)
	readFrame(t, connA, protocol.EncodingJSON)

	connB := dial(t, ts)
	readFrame(t, connB, protocol.EncodingJSON)
	readFrame(t, connB, protocol.EncodingJSON)

	if err := connA.WriteMessage(websocket.TextMessage, []byte(`{"type":"set_name","name":"alice"}`)); err != nil {
		t.Fatalf("write set_name: %v", err)
	}
	accepted := readUntil(t, connA, protocol.EncodingJSON, protocol.TypeNameAccepted)
	if accepted.T == 0 {
		t.Fatalf("name_accepted missing timecode: %+v", accepted)
	}

	if err := connB.WriteMessage(websocket.TextMessage, []byte(`{"type":"set_name","name":"alice"}`)); err != nil {
		t.Fatalf("write set_name: %v", err)
	}
	rejected := readUntil(t, connB, protocol.EncodingJSON, protocol.TypeNameRejected)
	if rejected.Reason == "" {
		t.Fatalf("name_rejected without reason: %+v", rejected)
	}
}
