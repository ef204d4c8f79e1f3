// Package platform abstracts the host capabilities the engagement
// subsystem depends on: push delivery, geolocation, and audio output.
// Every capability has a disabled fallback, so the client still runs on
// hosts where a capability is missing.
package platform

import (
	"context"
	"errors"
)

// ErrNotSupported is returned by capability operations on hosts that
// cannot provide the capability.
var ErrNotSupported = errors.New("platform: capability not supported")

// Permission is the user's answer to the notification consent prompt.
type Permission string

const (
	// PermissionDefault means the user has not been asked yet.
	PermissionDefault Permission = "default"
	// PermissionGranted means the user accepted notifications.
	PermissionGranted Permission = "granted"
	// PermissionDenied means the user declined notifications.
	PermissionDenied Permission = "denied"
)

// SubscriptionKeys are the client keys a push server encrypts payloads
// against, base64url-encoded without padding.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is an active push delivery channel.
type Subscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// PushPlatform is the push delivery capability of the host.
type PushPlatform interface {
	// Supported reports whether push delivery can work on this host at all.
	Supported() bool
	// Ready blocks until the delivery channel is usable or ctx is done.
	Ready(ctx context.Context) error
	// Permission returns the stored consent answer.
	Permission() Permission
	// RequestPermission prompts the user unless an answer is already stored.
	RequestPermission(ctx context.Context) (Permission, error)
	// Existing returns the persisted subscription, or nil when there is none.
	Existing() (*Subscription, error)
	// Subscribe opens a delivery channel keyed to the server's public key.
	// If a channel already exists it is returned unchanged.
	Subscribe(ctx context.Context, serverKey []byte) (*Subscription, error)
	// Unsubscribe tears the delivery channel down.
	Unsubscribe(ctx context.Context) error
}

// Coords is a geographic position. The field tags match the backend's
// wire format.
type Coords struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// LocationPlatform resolves the device position.
type LocationPlatform interface {
	Current(ctx context.Context) (Coords, error)
}

// AudioDevice is an open audio output.
type AudioDevice interface {
	// Ready is closed once the device accepts playback.
	Ready() <-chan struct{}
	// Play queues little-endian 16-bit PCM for playback and returns
	// without waiting for it to finish.
	Play(pcm []byte)
}

// AudioPlatform opens the host audio output.
type AudioPlatform interface {
	Open(sampleRate, channels int) (AudioDevice, error)
}
