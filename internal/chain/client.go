// Package chain implements the websocket JSON-RPC client for the uni-chain
// node. It exposes the four primitives the dashboard is built on: a storage
// value subscription, full storage map enumeration, a multi-key record
// subscription, and signed call submission with lifecycle watching. All
// business logic lives node-side; this client only moves bytes and decodes
// pushes.
package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/adrianncovaci/uni-chain/internal/identity"
	"github.com/adrianncovaci/uni-chain/internal/types"
)

// Unsubscribe releases a live subscription. Safe to call more than once;
// the node-side release happens in the background so it may be invoked from
// inside a subscription callback.
type Unsubscribe func()

// Pair is one enumerated storage map entry: the full storage key and the
// wrapped-optional record stored under it.
type Pair struct {
	Key    string
	Record Option[json.RawMessage]
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  *subParams      `json:"params,omitempty"`
}

type subParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// changeSet mirrors the node's storage notification: the block it was
// observed at plus [key, value] pairs. Pushes are incremental: a push
// carries only the keys that changed, and a null value means the entry was
// removed. Keys untouched by a push keep their last-known value.
type changeSet struct {
	Block   string              `json:"block"`
	Changes [][]json.RawMessage `json:"changes"`
}

// mergeInto folds the change set into the last-known value map.
func (s changeSet) mergeInto(last map[string]Option[json.RawMessage]) {
	for _, ch := range s.Changes {
		if len(ch) != 2 {
			continue
		}
		var key string
		if err := json.Unmarshal(ch[0], &key); err != nil {
			continue
		}
		if string(ch[1]) == "null" {
			last[key] = None[json.RawMessage]()
		} else {
			last[key] = Some(ch[1])
		}
	}
}

// pendingCall tracks one in-flight request. When sub is set, the request
// opens a subscription: the read loop decodes the result as the subscription
// id and registers sub's handler before dispatching anything else, so a
// notification arriving right behind the confirmation is never dropped.
type pendingCall struct {
	ch  chan rpcEnvelope
	sub func(subID string) func(json.RawMessage)
}

// Client is a websocket JSON-RPC connection to the node. A single read loop
// dispatches responses to pending calls and pushes to subscription handlers.
// The client does not reconnect: a lost connection fails all pending calls
// and is reported once through the disconnect handler.
type Client struct {
	url     string
	signer  *identity.Identity
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   uint64
	pending  map[uint64]pendingCall
	subs     map[string]func(json.RawMessage)
	closed   bool
	closeErr error

	done         chan struct{}
	onDisconnect func(error)
}

// Dial connects to the node's websocket RPC endpoint. The signer identity is
// used to sign submitted calls; it may be nil for a read-only client.
func Dial(ctx context.Context, url string, signer *identity.Identity) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial node %s: %w", url, err)
	}

	c := &Client{
		url:     url,
		signer:  signer,
		conn:    conn,
		pending: make(map[uint64]pendingCall),
		subs:    make(map[string]func(json.RawMessage)),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SetDisconnectHandler registers a callback invoked once if the underlying
// connection fails. Call before opening subscriptions.
func (c *Client) SetDisconnectHandler(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// Close shuts the connection down. Pending calls fail; no disconnect
// callback is invoked for a deliberate close.
func (c *Client) Close() error {
	c.fail(fmt.Errorf("client closed"), false)
	return nil
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(fmt.Errorf("node connection lost: %w", err), true)
			return
		}

		var env rpcEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("chain: discarding malformed frame: %v", err)
			continue
		}

		switch {
		case env.ID != nil:
			// Register a new subscription's handler under the same lock
			// that delivers the response: the next frame the loop reads
			// already finds it, so an immediate initial push is kept.
			c.mu.Lock()
			pc, ok := c.pending[*env.ID]
			delete(c.pending, *env.ID)
			if ok && pc.sub != nil && env.Error == nil {
				var subID string
				if err := json.Unmarshal(env.Result, &subID); err == nil {
					c.subs[subID] = pc.sub(subID)
				}
			}
			if ok {
				pc.ch <- env
			}
			c.mu.Unlock()
		case env.Params != nil:
			c.mu.Lock()
			cb := c.subs[env.Params.Subscription]
			c.mu.Unlock()
			if cb != nil {
				cb(env.Params.Result)
			}
		}
	}
}

func (c *Client) fail(err error, notify bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	c.pending = make(map[uint64]pendingCall)
	c.subs = make(map[string]func(json.RawMessage))
	handler := c.onDisconnect
	c.mu.Unlock()

	close(c.done)
	c.conn.Close()

	if notify && handler != nil {
		handler(err)
	}
}

func (c *Client) closeReason() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return c.closeErr
	}
	return fmt.Errorf("client closed")
}

// send registers a pending call and writes the request frame.
func (c *Client) send(pc pendingCall, method string, params []interface{}) (uint64, error) {
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return 0, err
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = pc
	c.mu.Unlock()

	if params == nil {
		params = []interface{}{}
	}
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return 0, fmt.Errorf("write %s: %w", method, err)
	}
	return id, nil
}

// call performs one request/response round trip.
func (c *Client) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	ch := make(chan rpcEnvelope, 1)
	id, err := c.send(pendingCall{ch: ch}, method, params)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.closeReason()
	case env := <-ch:
		if env.Error != nil {
			return nil, env.Error
		}
		return env.Result, nil
	}
}

// subscribeCall opens a subscription. factory is invoked by the read loop
// with the subscription id, before any notification for that id can be
// dispatched; the returned handler receives every push. If the context is
// cancelled while the confirmation is in flight, any subscription that was
// registered in the race is released.
func (c *Client) subscribeCall(ctx context.Context, method, releaseMethod string, factory func(subID string) func(json.RawMessage), params ...interface{}) (Unsubscribe, error) {
	ch := make(chan rpcEnvelope, 1)
	id, err := c.send(pendingCall{ch: ch, sub: factory}, method, params)
	if err != nil {
		return nil, err
	}

	decodeSubID := func(env rpcEnvelope) (string, error) {
		if env.Error != nil {
			return "", env.Error
		}
		var subID string
		if err := json.Unmarshal(env.Result, &subID); err != nil {
			return "", fmt.Errorf("decode subscription id: %w", err)
		}
		return subID, nil
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		// The confirmation may have been dispatched first; undo it.
		select {
		case env := <-ch:
			if subID, err := decodeSubID(env); err == nil {
				c.releaseFunc(subID, releaseMethod)()
			}
		default:
		}
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.closeReason()
	case env := <-ch:
		subID, err := decodeSubID(env)
		if err != nil {
			return nil, err
		}
		return c.releaseFunc(subID, releaseMethod), nil
	}
}

// subscribeStorage opens a storage subscription on the given full keys and
// delivers, per push, the last-known values aligned positionally with keys.
// Change sets are incremental, so they are merged into a per-subscription
// cache; Absent means the entry was removed (or never reported), never
// "unchanged in this push".
func (c *Client) subscribeStorage(ctx context.Context, keys []string, handler func([]Option[json.RawMessage])) (Unsubscribe, error) {
	return c.subscribeCall(ctx, "state_subscribeStorage", "state_unsubscribeStorage", func(subID string) func(json.RawMessage) {
		// touched only by the read loop
		last := make(map[string]Option[json.RawMessage], len(keys))
		return func(raw json.RawMessage) {
			var set changeSet
			if err := json.Unmarshal(raw, &set); err != nil {
				log.Printf("chain: discarding malformed storage push on %s: %v", subID, err)
				return
			}
			set.mergeInto(last)

			out := make([]Option[json.RawMessage], len(keys))
			for i, key := range keys {
				out[i] = last[key]
			}
			handler(out)
		}
	}, keys)
}

// releaseFunc builds an Unsubscribe that removes the local handler
// immediately and releases the node-side subscription in the background,
// so it cannot deadlock the read loop.
func (c *Client) releaseFunc(subID, method string) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, subID)
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if _, err := c.call(ctx, method, subID); err != nil {
					log.Printf("chain: release subscription %s: %v", subID, err)
				}
			}()
		})
	}
}

// SubscribeValue subscribes to a single storage value, invoking cb with the
// raw value on every change.
func (c *Client) SubscribeValue(ctx context.Context, module, item string, cb func(json.RawMessage)) (Unsubscribe, error) {
	key := StorageKey(module, item)
	return c.subscribeStorage(ctx, []string{key}, func(opts []Option[json.RawMessage]) {
		if v, ok := opts[0].Value(); ok {
			cb(v)
		}
	})
}

// EntryPairs enumerates all entries of a storage map in one query.
func (c *Client) EntryPairs(ctx context.Context, module, mapName string) ([]Pair, error) {
	res, err := c.call(ctx, "state_getPairs", StorageKey(module, mapName))
	if err != nil {
		return nil, fmt.Errorf("enumerate %s/%s: %w", module, mapName, err)
	}

	var rawPairs [][]json.RawMessage
	if err := json.Unmarshal(res, &rawPairs); err != nil {
		return nil, fmt.Errorf("decode %s/%s pairs: %w", module, mapName, err)
	}

	pairs := make([]Pair, 0, len(rawPairs))
	for _, rp := range rawPairs {
		if len(rp) != 2 {
			continue
		}
		var key string
		if err := json.Unmarshal(rp[0], &key); err != nil {
			continue
		}
		record := None[json.RawMessage]()
		if string(rp[1]) != "null" {
			record = Some(rp[1])
		}
		pairs = append(pairs, Pair{Key: key, Record: record})
	}
	return pairs, nil
}

// SubscribeEntries subscribes to the map entries named by entry args (hex
// dna values). Every push delivers wrapped-optional records aligned
// positionally with the given args.
func (c *Client) SubscribeEntries(ctx context.Context, module, mapName string, args []string, cb func([]Option[json.RawMessage])) (Unsubscribe, error) {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = EntryKey(module, mapName, a)
	}
	return c.subscribeStorage(ctx, keys, func(opts []Option[json.RawMessage]) {
		cb(opts)
	})
}

// SubmitAndWatch signs the call descriptor, submits it, and reports
// lifecycle status text through onStatus until the transaction reaches a
// terminal state. It returns once the submission is accepted by the node;
// the watch continues in the background.
func (c *Client) SubmitAndWatch(ctx context.Context, call types.Call, onStatus func(string)) error {
	if c.signer == nil {
		return fmt.Errorf("no signing identity configured")
	}

	payload, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("encode call: %w", err)
	}
	signed := types.SignedCall{
		Call:      payload,
		Signature: c.signer.Sign(payload),
		PublicKey: c.signer.PublicKey(),
	}
	txBytes, err := json.Marshal(signed)
	if err != nil {
		return fmt.Errorf("encode signed call: %w", err)
	}

	_, err = c.subscribeCall(ctx, "author_submitAndWatchExtrinsic", "author_unwatchExtrinsic", func(subID string) func(json.RawMessage) {
		unwatch := c.releaseFunc(subID, "author_unwatchExtrinsic")
		return func(raw json.RawMessage) {
			text, done := renderTxStatus(raw)
			if text != "" && onStatus != nil {
				onStatus(text)
			}
			if done {
				unwatch()
			}
		}
	}, "0x"+hex.EncodeToString(txBytes))
	if err != nil {
		return fmt.Errorf("submit %s.%s: %w", call.Module, call.Operation, err)
	}
	return nil
}

// renderTxStatus turns an author_extrinsicUpdate payload into display text.
// Payloads are either a bare string ("ready", "broadcast") or a single-key
// object such as {"inBlock": "0x..."}. done marks terminal states.
func renderTxStatus(raw json.RawMessage) (text string, done bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return fmt.Sprintf("Current transaction status: %s", s), false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	pick := func(key string) (string, bool) {
		v, ok := obj[key]
		if !ok {
			return "", false
		}
		var out string
		if err := json.Unmarshal(v, &out); err != nil {
			out = string(v)
		}
		return out, true
	}

	if hash, ok := pick("inBlock"); ok {
		return fmt.Sprintf("Transaction included at block hash %s", hash), false
	}
	if hash, ok := pick("finalized"); ok {
		return fmt.Sprintf("Finalized. Block hash: %s", hash), true
	}
	if reason, ok := pick("invalid"); ok {
		return fmt.Sprintf("Transaction failed: %s", reason), true
	}
	if reason, ok := pick("dropped"); ok {
		return fmt.Sprintf("Transaction dropped: %s", reason), true
	}
	return fmt.Sprintf("Current transaction status: %s", string(raw)), false
}
