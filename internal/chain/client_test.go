package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adrianncovaci/uni-chain/internal/identity"
	"github.com/adrianncovaci/uni-chain/internal/types"
)

// nodeReq is the server-side view of a client request frame.
type nodeReq struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

// startFakeNode runs a websocket endpoint that feeds every request frame to
// handle. Handlers write responses and notifications on the same connection.
func startFakeNode(t *testing.T, handle func(c *websocket.Conn, req nodeReq)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req nodeReq
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			handle(conn, req)
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func respond(c *websocket.Conn, id uint64, result interface{}) {
	c.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": id, "result": result})
}

func notify(c *websocket.Conn, method, subID string, result interface{}) {
	c.WriteJSON(map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  map[string]interface{}{"subscription": subID, "result": result},
	})
}

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.LoadOrCreateIdentity(filepath.Join(t.TempDir(), "key.pem"))
	if err != nil {
		t.Fatalf("Failed to create identity: %v", err)
	}
	return id
}

func TestSubscribeValue(t *testing.T) {
	unsubscribed := make(chan struct{}, 1)
	url := startFakeNode(t, func(c *websocket.Conn, req nodeReq) {
		switch req.Method {
		case "state_subscribeStorage":
			var keys []string
			json.Unmarshal(req.Params[0], &keys)
			respond(c, req.ID, "sub-1")
			notify(c, "state_storage", "sub-1", map[string]interface{}{
				"block":   "0x01",
				"changes": [][]interface{}{{keys[0], 7}},
			})
		case "state_unsubscribeStorage":
			respond(c, req.ID, true)
			unsubscribed <- struct{}{}
		}
	})

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	values := make(chan json.RawMessage, 1)
	unsub, err := client.SubscribeValue(context.Background(), types.PalletName, types.CourseCountItem, func(v json.RawMessage) {
		values <- v
	})
	if err != nil {
		t.Fatalf("SubscribeValue failed: %v", err)
	}

	select {
	case v := <-values:
		if string(v) != "7" {
			t.Errorf("Expected push value 7, got %s", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No push received")
	}

	unsub()
	select {
	case <-unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("Node never saw the unsubscribe")
	}
}

func TestEntryPairs(t *testing.T) {
	prefix := StorageKey(types.PalletName, types.CoursesMap)
	url := startFakeNode(t, func(c *websocket.Conn, req nodeReq) {
		if req.Method != "state_getPairs" {
			t.Errorf("Unexpected method %s", req.Method)
			return
		}
		respond(c, req.ID, [][]interface{}{
			{prefix + "aa01", map[string]interface{}{"dna": "aa01", "owner": "alice"}},
			{prefix + "bb02", nil},
		})
	})

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	pairs, err := client.EntryPairs(context.Background(), types.PalletName, types.CoursesMap)
	if err != nil {
		t.Fatalf("EntryPairs failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("Expected 2 pairs, got %d", len(pairs))
	}
	if !pairs[0].Record.Present() {
		t.Error("First pair should be present")
	}
	if pairs[1].Record.Present() {
		t.Error("Removed entry should be absent")
	}
}

func TestCallError(t *testing.T) {
	url := startFakeNode(t, func(c *websocket.Conn, req nodeReq) {
		c.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
		})
	})

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	_, err = client.EntryPairs(context.Background(), types.PalletName, types.CoursesMap)
	if err == nil || !strings.Contains(err.Error(), "method not found") {
		t.Errorf("Expected rpc error to propagate, got %v", err)
	}
}

func TestSubscribeEntriesAlignment(t *testing.T) {
	url := startFakeNode(t, func(c *websocket.Conn, req nodeReq) {
		if req.Method != "state_subscribeStorage" {
			return
		}
		var keys []string
		json.Unmarshal(req.Params[0], &keys)
		respond(c, req.ID, "sub-2")
		// Only the first key has a value; the second was removed.
		notify(c, "state_storage", "sub-2", map[string]interface{}{
			"block":   "0x02",
			"changes": [][]interface{}{{keys[0], map[string]interface{}{"dna": "aa01"}}, {keys[1], nil}},
		})
	})

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	pushes := make(chan []Option[json.RawMessage], 1)
	_, err = client.SubscribeEntries(context.Background(), types.PalletName, types.CoursesMap, []string{"aa01", "bb02"}, func(opts []Option[json.RawMessage]) {
		pushes <- opts
	})
	if err != nil {
		t.Fatalf("SubscribeEntries failed: %v", err)
	}

	select {
	case opts := <-pushes:
		if len(opts) != 2 {
			t.Fatalf("Expected positional alignment with 2 keys, got %d", len(opts))
		}
		if !opts[0].Present() || opts[1].Present() {
			t.Errorf("Expected [present, absent], got [%v, %v]", opts[0].Present(), opts[1].Present())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No push received")
	}
}

func TestIncrementalPushKeepsUnchangedRecords(t *testing.T) {
	url := startFakeNode(t, func(c *websocket.Conn, req nodeReq) {
		if req.Method != "state_subscribeStorage" {
			return
		}
		var keys []string
		json.Unmarshal(req.Params[0], &keys)
		respond(c, req.ID, "sub-3")
		// Full initial push, then a push touching only the second key,
		// then one removing the first.
		notify(c, "state_storage", "sub-3", map[string]interface{}{
			"block": "0x01",
			"changes": [][]interface{}{
				{keys[0], map[string]interface{}{"dna": "aa01", "price": 1}},
				{keys[1], map[string]interface{}{"dna": "bb02", "price": 2}},
			},
		})
		notify(c, "state_storage", "sub-3", map[string]interface{}{
			"block":   "0x02",
			"changes": [][]interface{}{{keys[1], map[string]interface{}{"dna": "bb02", "price": 9}}},
		})
		notify(c, "state_storage", "sub-3", map[string]interface{}{
			"block":   "0x03",
			"changes": [][]interface{}{{keys[0], nil}},
		})
	})

	client, err := Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	pushes := make(chan []Option[json.RawMessage], 3)
	_, err = client.SubscribeEntries(context.Background(), types.PalletName, types.CoursesMap, []string{"aa01", "bb02"}, func(opts []Option[json.RawMessage]) {
		pushes <- opts
	})
	if err != nil {
		t.Fatalf("SubscribeEntries failed: %v", err)
	}

	wait := func() []Option[json.RawMessage] {
		t.Helper()
		select {
		case opts := <-pushes:
			return opts
		case <-time.After(2 * time.Second):
			t.Fatal("No push received")
			return nil
		}
	}

	first := wait()
	if !first[0].Present() || !first[1].Present() {
		t.Fatalf("Initial push should resolve both records: [%v, %v]", first[0].Present(), first[1].Present())
	}

	second := wait()
	if !second[0].Present() {
		t.Error("Record untouched by an incremental push must keep its last value")
	}
	if v, _ := second[1].Value(); !strings.Contains(string(v), "9") {
		t.Errorf("Changed record should carry the new value, got %s", v)
	}
	if v, _ := second[0].Value(); !strings.Contains(string(v), `"price":1`) {
		t.Errorf("Unchanged record should keep its old value, got %s", v)
	}

	third := wait()
	if third[0].Present() {
		t.Error("Null change means removed, the entry must go absent")
	}
	if !third[1].Present() {
		t.Error("Removal of one entry must not disturb the other")
	}
}

func TestSubmitAndWatch(t *testing.T) {
	signer := testIdentity(t)
	unwatched := make(chan struct{}, 1)

	url := startFakeNode(t, func(c *websocket.Conn, req nodeReq) {
		switch req.Method {
		case "author_submitAndWatchExtrinsic":
			var ext string
			json.Unmarshal(req.Params[0], &ext)
			raw, err := hex.DecodeString(strings.TrimPrefix(ext, "0x"))
			if err != nil {
				t.Errorf("Extrinsic is not hex: %v", err)
			}
			var signed types.SignedCall
			if err := json.Unmarshal(raw, &signed); err != nil {
				t.Errorf("Extrinsic is not a signed call: %v", err)
			}
			var call types.Call
			if err := json.Unmarshal(signed.Call, &call); err != nil || call.Operation != "createCourse" {
				t.Errorf("Unexpected inner call: %v %+v", err, call)
			}
			respond(c, req.ID, "watch-1")
			notify(c, "author_extrinsicUpdate", "watch-1", "ready")
			notify(c, "author_extrinsicUpdate", "watch-1", map[string]string{"inBlock": "0xabc"})
			notify(c, "author_extrinsicUpdate", "watch-1", map[string]string{"finalized": "0xabc"})
		case "author_unwatchExtrinsic":
			respond(c, req.ID, true)
			unwatched <- struct{}{}
		}
	})

	client, err := Dial(context.Background(), url, signer)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	statuses := make(chan string, 8)
	if err := client.SubmitAndWatch(context.Background(), types.NewCreateCall(), func(s string) {
		statuses <- s
	}); err != nil {
		t.Fatalf("SubmitAndWatch failed: %v", err)
	}

	var got []string
	for len(got) < 3 {
		select {
		case s := <-statuses:
			got = append(got, s)
		case <-time.After(2 * time.Second):
			t.Fatalf("Only received %d status updates: %v", len(got), got)
		}
	}

	if !strings.Contains(got[0], "ready") {
		t.Errorf("First status should mention ready: %q", got[0])
	}
	if !strings.Contains(got[1], "0xabc") {
		t.Errorf("In-block status should carry the block hash: %q", got[1])
	}
	if !strings.Contains(got[2], "Finalized") {
		t.Errorf("Final status should mention finalization: %q", got[2])
	}

	select {
	case <-unwatched:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch was never released after finalization")
	}
}

func TestRenderTxStatus(t *testing.T) {
	text, done := renderTxStatus(json.RawMessage(`"broadcast"`))
	if done || !strings.Contains(text, "broadcast") {
		t.Errorf("Unexpected broadcast status: %q done=%v", text, done)
	}

	text, done = renderTxStatus(json.RawMessage(`{"invalid":"BidPriceTooLow"}`))
	if !done || !strings.Contains(text, "BidPriceTooLow") {
		t.Errorf("Invalid status must be terminal and carry the reason: %q done=%v", text, done)
	}

	_, done = renderTxStatus(json.RawMessage(`{"inBlock":"0x1"}`))
	if done {
		t.Error("inBlock is not a terminal state")
	}
}
