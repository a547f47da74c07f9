// Package keyring holds the API key pairs used for signed requests and
// rotates between them. The key set is fixed at construction; keys marked
// Disabled are never handed out.
package keyring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tidexgo/internal/nonce"
	"tidexgo/pkg/core"
)

type KeyRing struct {
	mu       sync.RWMutex
	keys     []*APIKey
	current  int
	strategy RotationStrategy
	logger   zerolog.Logger
}

// APIKey is one key pair. Each pair owns its nonce sequence because the
// venue tracks nonces per key.
type APIKey struct {
	ID         string
	Key        string
	Secret     string
	Disabled   bool
	LastUsed   time.Time
	ErrorCount int

	nonce *nonce.Generator
}

type RotationStrategy int

const (
	// RotationNone keeps using the current key until it is disabled.
	RotationNone RotationStrategy = iota
	// RotationRoundRobin advances to the next key after every use.
	RotationRoundRobin
	// RotationOnError advances after an authentication failure.
	RotationOnError
	// RotationOnRateLimit advances after a rate limit response.
	RotationOnRateLimit
)

func NewKeyRing(keys []*APIKey, strategy RotationStrategy) *KeyRing {
	keysCopy := make([]*APIKey, 0, len(keys))
	for _, k := range keys {
		keysCopy = append(keysCopy, &APIKey{
			ID:       k.ID,
			Key:      k.Key,
			Secret:   k.Secret,
			Disabled: k.Disabled,
			nonce:    nonce.New(),
		})
	}

	return &KeyRing{
		keys:     keysCopy,
		strategy: strategy,
		logger:   zerolog.Nop(),
	}
}

// FromCredentials builds a single-key ring. Incomplete credentials yield an
// empty ring.
func FromCredentials(creds *core.Credentials) *KeyRing {
	if !creds.Valid() {
		return NewKeyRing(nil, RotationNone)
	}
	return NewKeyRing([]*APIKey{{ID: "default", Key: creds.APIKey, Secret: creds.SecretKey}}, RotationNone)
}

// SetLogger replaces the logger used for rotation events.
func (k *KeyRing) SetLogger(l zerolog.Logger) {
	k.mu.Lock()
	k.logger = l
	k.mu.Unlock()
}

// Len returns the number of keys, including disabled ones.
func (k *KeyRing) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// Current returns the first enabled key at or after the cursor, or nil.
func (k *KeyRing) Current() *APIKey {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for i := range k.keys {
		idx := (k.current + i) % len(k.keys)
		if !k.keys[idx].Disabled {
			return k.keys[idx]
		}
	}
	return nil
}

func (k *KeyRing) rotateLocked() {
	if len(k.keys) == 0 {
		return
	}

	start := k.current
	for {
		k.current = (k.current + 1) % len(k.keys)
		if !k.keys[k.current].Disabled || k.current == start {
			return
		}
	}
}

// MarkUsed stamps the key and, under round-robin, moves the cursor past it.
func (k *KeyRing) MarkUsed(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	idx, key := k.findLocked(id)
	if key == nil {
		return
	}
	key.LastUsed = time.Now()
	if k.strategy == RotationRoundRobin {
		k.current = idx
		k.rotateLocked()
	}
}

// OnError records a failed call made with key id and rotates when the
// strategy asks for it.
func (k *KeyRing) OnError(id string, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	idx, key := k.findLocked(id)
	if key == nil {
		return
	}
	key.ErrorCount++

	rotate := (k.strategy == RotationOnError && core.IsAuthenticationError(err)) ||
		(k.strategy == RotationOnRateLimit && core.IsRateLimitError(err))
	if rotate {
		k.current = idx
		k.rotateLocked()
		k.logger.Warn().Str("key", key.String()).Err(err).Msg("rotated api key")
	}
}

func (k *KeyRing) findLocked(id string) (int, *APIKey) {
	for i, key := range k.keys {
		if key.ID == id {
			return i, key
		}
	}
	return -1, nil
}

// Credentials returns the key pair in the form the signer consumes.
func (k *APIKey) Credentials() *core.Credentials {
	return &core.Credentials{APIKey: k.Key, SecretKey: k.Secret}
}

// NextNonce returns the next nonce for this key. Only keys owned by a
// KeyRing carry a nonce sequence.
func (k *APIKey) NextNonce() int64 {
	return k.nonce.Next()
}

func (k *APIKey) String() string {
	return fmt.Sprintf("APIKey{ID:%s, Key:%s}", k.ID, maskKey(k.Key))
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
