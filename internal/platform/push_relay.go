package platform

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/civicwatch/herald/internal/logging"
)

const (
	// stateFile persists the subscription and consent answer across runs.
	stateFile = "push_state.json"
	// relayTimeout bounds the websocket handshake and each request exchange.
	relayTimeout = 5 * time.Second
	// authSecretLen is the size of the shared auth secret in bytes.
	authSecretLen = 16
)

// ConsentFunc asks the user whether push notifications may be enabled.
// It returns true when the user accepts.
type ConsentFunc func(ctx context.Context) (bool, error)

// relayMessage is one frame of the relay wire protocol. Fields not used
// by a given message type stay empty.
type relayMessage struct {
	Type      string `json:"type"`
	Device    string `json:"device,omitempty"`
	ServerKey string `json:"server_key,omitempty"`
	P256dh    string `json:"p256dh,omitempty"`
	Auth      string `json:"auth,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Payload   string `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PushMessage is one notification delivered through the relay, after
// decryption.
type PushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// pushState is the persisted half of a relay subscription. The private
// key never leaves this file.
type pushState struct {
	Permission Permission `json:"permission"`
	Endpoint   string     `json:"endpoint,omitempty"`
	P256dh     string     `json:"p256dh,omitempty"`
	Auth       string     `json:"auth,omitempty"`
	PrivateKey string     `json:"private_key,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// RelayPush delivers push messages through a CivicWatch relay daemon
// reached over a websocket. Subscribing generates a fresh P-256 key
// pair and auth secret, registers them with the relay, and persists the
// endpoint the relay hands back.
type RelayPush struct {
	relayURL string
	deviceID string
	stateDir string
	consent  ConsentFunc
	log      *logging.Logger
	dialer   *websocket.Dialer

	mu    sync.Mutex
	conn  *websocket.Conn
	state pushState
}

// NewRelayPush creates a push backend for the given relay URL. An empty
// URL yields an unsupported backend. The consent func may be nil, in
// which case permission stays at its default until granted elsewhere.
func NewRelayPush(relayURL, stateDir, deviceID string, consent ConsentFunc, log *logging.Logger) *RelayPush {
	if log == nil {
		log = logging.Discard()
	}
	r := &RelayPush{
		relayURL: relayURL,
		deviceID: deviceID,
		stateDir: stateDir,
		consent:  consent,
		log:      log,
		dialer:   &websocket.Dialer{HandshakeTimeout: relayTimeout},
	}
	r.loadState()
	return r
}

func (r *RelayPush) Supported() bool {
	return r.relayURL != ""
}

// Ready establishes the relay link if it is not already up. Callers
// that cannot afford to wait should race this against a timeout.
func (r *RelayPush) Ready(ctx context.Context) error {
	if !r.Supported() {
		return ErrNotSupported
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.linkLocked(ctx)
	return err
}

func (r *RelayPush) Permission() Permission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Permission
}

// RequestPermission returns the stored answer when one exists, and
// otherwise runs the consent prompt. A prompt that is dismissed or
// fails leaves the answer at PermissionDefault so it can be asked
// again later.
func (r *RelayPush) RequestPermission(ctx context.Context) (Permission, error) {
	r.mu.Lock()
	if r.state.Permission != PermissionDefault {
		p := r.state.Permission
		r.mu.Unlock()
		return p, nil
	}
	consent := r.consent
	r.mu.Unlock()

	if consent == nil {
		return PermissionDefault, nil
	}
	granted, err := consent(ctx)
	if err != nil {
		return PermissionDefault, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if granted {
		r.state.Permission = PermissionGranted
	} else {
		r.state.Permission = PermissionDenied
	}
	r.saveStateLocked()
	return r.state.Permission, nil
}

func (r *RelayPush) Existing() (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Endpoint == "" {
		return nil, nil
	}
	return r.subscriptionLocked(), nil
}

// Subscribe registers a new delivery channel with the relay. When a
// channel already exists it is returned as-is, which makes the call
// idempotent.
func (r *RelayPush) Subscribe(ctx context.Context, serverKey []byte) (*Subscription, error) {
	if !r.Supported() {
		return nil, ErrNotSupported
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Endpoint != "" {
		return r.subscriptionLocked(), nil
	}

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key pair: %w", err)
	}
	auth := make([]byte, authSecretLen)
	if _, err := rand.Read(auth); err != nil {
		return nil, fmt.Errorf("generate auth secret: %w", err)
	}

	p256dh := base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes())
	authEnc := base64.RawURLEncoding.EncodeToString(auth)

	reply, err := r.roundTripLocked(ctx, relayMessage{
		Type:      "register",
		Device:    r.deviceID,
		ServerKey: base64.RawURLEncoding.EncodeToString(serverKey),
		P256dh:    p256dh,
		Auth:      authEnc,
	})
	if err != nil {
		return nil, err
	}
	if reply.Type != "registered" || reply.Endpoint == "" {
		return nil, fmt.Errorf("unexpected relay reply %q", reply.Type)
	}

	r.state.Endpoint = reply.Endpoint
	r.state.P256dh = p256dh
	r.state.Auth = authEnc
	r.state.PrivateKey = base64.RawURLEncoding.EncodeToString(priv.Bytes())
	r.state.CreatedAt = time.Now().UTC()
	r.saveStateLocked()

	r.log.Debug("push channel registered", "endpoint", reply.Endpoint)
	return r.subscriptionLocked(), nil
}

func (r *RelayPush) Unsubscribe(ctx context.Context) error {
	if !r.Supported() {
		return ErrNotSupported
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Endpoint == "" {
		return nil
	}

	_, err := r.roundTripLocked(ctx, relayMessage{
		Type:     "unregister",
		Device:   r.deviceID,
		Endpoint: r.state.Endpoint,
	})
	if err != nil {
		return err
	}

	r.state.Endpoint = ""
	r.state.P256dh = ""
	r.state.Auth = ""
	r.state.PrivateKey = ""
	r.saveStateLocked()
	return nil
}

// Listen streams notifications pushed through the relay on a dedicated
// connection, decrypting each payload with the subscription's private
// key and handing the result to deliver. It blocks until the context
// ends or the link drops; payloads that fail to decrypt or decode are
// logged and skipped.
func (r *RelayPush) Listen(ctx context.Context, deliver func(PushMessage)) error {
	if !r.Supported() {
		return ErrNotSupported
	}

	r.mu.Lock()
	endpoint := r.state.Endpoint
	privB64 := r.state.PrivateKey
	authB64 := r.state.Auth
	r.mu.Unlock()
	if endpoint == "" {
		return fmt.Errorf("no push subscription")
	}

	privRaw, err := base64.RawURLEncoding.DecodeString(privB64)
	if err != nil {
		return fmt.Errorf("stored private key corrupt: %w", err)
	}
	priv, err := ecdh.P256().NewPrivateKey(privRaw)
	if err != nil {
		return fmt.Errorf("stored private key corrupt: %w", err)
	}
	authSecret, err := base64.RawURLEncoding.DecodeString(authB64)
	if err != nil {
		return fmt.Errorf("stored auth secret corrupt: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, relayTimeout)
	conn, _, err := r.dialer.DialContext(dialCtx, r.relayURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(relayMessage{
		Type:     "listen",
		Device:   r.deviceID,
		Endpoint: endpoint,
	}); err != nil {
		return fmt.Errorf("start delivery stream: %w", err)
	}

	// Closing the connection is the only way to unblock ReadJSON.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var frame relayMessage
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("delivery stream: %w", err)
		}
		if frame.Type != "push" || frame.Payload == "" {
			continue
		}

		raw, err := base64.RawURLEncoding.DecodeString(frame.Payload)
		if err != nil {
			r.log.Debug("push payload not base64", "error", err)
			continue
		}
		plain, err := decryptPayload(priv, authSecret, raw)
		if err != nil {
			r.log.Debug("push payload rejected", "error", err)
			continue
		}
		var msg PushMessage
		if err := json.Unmarshal(plain, &msg); err != nil {
			r.log.Debug("push payload not json", "error", err)
			continue
		}
		deliver(msg)
	}
}

// Close shuts down the relay link if one is open.
func (r *RelayPush) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

func (r *RelayPush) subscriptionLocked() *Subscription {
	return &Subscription{
		Endpoint: r.state.Endpoint,
		Keys: SubscriptionKeys{
			P256dh: r.state.P256dh,
			Auth:   r.state.Auth,
		},
	}
}

// linkLocked dials the relay and performs the hello exchange, caching
// the connection for later requests. Callers hold r.mu.
func (r *RelayPush) linkLocked(ctx context.Context) (*websocket.Conn, error) {
	if r.conn != nil {
		return r.conn, nil
	}

	conn, _, err := r.dialer.DialContext(ctx, r.relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	reply, err := r.exchange(ctx, conn, relayMessage{Type: "hello", Device: r.deviceID})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if reply.Type != "ready" {
		conn.Close()
		return nil, fmt.Errorf("unexpected relay reply %q", reply.Type)
	}

	r.conn = conn
	r.log.Debug("relay link established", "url", r.relayURL)
	return conn, nil
}

// roundTripLocked sends one request over the cached link and reads the
// reply. The link is dropped on failure so the next call redials.
func (r *RelayPush) roundTripLocked(ctx context.Context, out relayMessage) (relayMessage, error) {
	conn, err := r.linkLocked(ctx)
	if err != nil {
		return relayMessage{}, err
	}
	in, err := r.exchange(ctx, conn, out)
	if err != nil {
		conn.Close()
		r.conn = nil
	}
	return in, err
}

func (r *RelayPush) exchange(ctx context.Context, conn *websocket.Conn, out relayMessage) (relayMessage, error) {
	deadline := time.Now().Add(relayTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	var in relayMessage
	if err := conn.WriteJSON(out); err != nil {
		return in, fmt.Errorf("write %s: %w", out.Type, err)
	}
	if err := conn.ReadJSON(&in); err != nil {
		return in, fmt.Errorf("read reply: %w", err)
	}
	if in.Type == "error" {
		return in, fmt.Errorf("relay error: %s", in.Error)
	}
	return in, nil
}

func (r *RelayPush) statePath() string {
	return filepath.Join(r.stateDir, stateFile)
}

func (r *RelayPush) loadState() {
	r.state.Permission = PermissionDefault
	data, err := os.ReadFile(r.statePath())
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &r.state); err != nil {
		r.log.Debug("push state corrupt, starting fresh", "error", err)
		r.state = pushState{Permission: PermissionDefault}
		return
	}
	if r.state.Permission == "" {
		r.state.Permission = PermissionDefault
	}
}

func (r *RelayPush) saveStateLocked() {
	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(r.stateDir, 0o755); err != nil {
		r.log.Debug("push state write failed", "error", err)
		return
	}
	// The file holds the channel's private key.
	if err := os.WriteFile(r.statePath(), data, 0o600); err != nil {
		r.log.Debug("push state write failed", "error", err)
	}
}
