// Package enroll maintains the long-term voice baseline for each principal
// and re-verifies fresh samples against it.
//
// A principal's baseline is at most three encrypted enrollment artifacts.
// The registry records where each artifact's ciphertext and key live; the
// Matcher decrypts them on demand and votes on embedding similarity.
package enroll

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/voicepay/voicegate/pkg/kv"
)

// MaxRecords is the number of enrollment slots per principal.
const MaxRecords = 3

// Record locates one enrollment artifact: the ciphertext blob and the key
// blob are stored under independent locators in independent stores.
type Record struct {
	Principal     string `msgpack:"principal"`
	Slot          int    `msgpack:"slot"`
	CipherLocator string `msgpack:"cipher_locator"`
	CipherURL     string `msgpack:"cipher_url,omitempty"`
	KeyLocator    string `msgpack:"key_locator"`
	KeyURL        string `msgpack:"key_url,omitempty"`
	SampleRate    int    `msgpack:"sample_rate,omitempty"`
	CreatedAt     int64  `msgpack:"created_at"`
}

// Registry stores enrollment records in a key-value store, keyed by
// "enroll/{principal}/{slot}".
type Registry struct {
	store kv.Store
}

// NewRegistry creates a registry on top of the given store.
func NewRegistry(store kv.Store) *Registry {
	return &Registry{store: store}
}

func recordKey(principal string, slot int) string {
	return fmt.Sprintf("enroll/%s/%d", principal, slot)
}

// Add stores a record, assigning it a slot. Free slots fill first; once
// all MaxRecords slots are taken, the oldest record is overwritten so the
// baseline tracks the speaker's most recent voice.
func (r *Registry) Add(ctx context.Context, rec Record) (Record, error) {
	if rec.Principal == "" {
		return Record{}, fmt.Errorf("enroll: record missing principal")
	}
	// "/" is the key separator; a principal containing it would write
	// into another principal's prefix and be counted among their priors.
	if strings.Contains(rec.Principal, "/") {
		return Record{}, fmt.Errorf("enroll: invalid principal %q", rec.Principal)
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixNano()
	}

	existing, err := r.List(ctx, rec.Principal)
	if err != nil {
		return Record{}, err
	}

	if len(existing) < MaxRecords {
		// Occupy the first free slot.
		used := make(map[int]bool, len(existing))
		for _, e := range existing {
			used[e.Slot] = true
		}
		for slot := range MaxRecords {
			if !used[slot] {
				rec.Slot = slot
				break
			}
		}
	} else {
		oldest := existing[0]
		for _, e := range existing[1:] {
			if e.CreatedAt < oldest.CreatedAt {
				oldest = e
			}
		}
		rec.Slot = oldest.Slot
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return Record{}, fmt.Errorf("enroll: marshal record: %w", err)
	}
	if err := r.store.Set(ctx, recordKey(rec.Principal, rec.Slot), data); err != nil {
		return Record{}, fmt.Errorf("enroll: store record: %w", err)
	}
	return rec, nil
}

// List returns the principal's enrollment records in slot order.
func (r *Registry) List(ctx context.Context, principal string) ([]Record, error) {
	var out []Record
	for e, err := range r.store.List(ctx, "enroll/"+principal+"/") {
		if err != nil {
			return nil, fmt.Errorf("enroll: list records: %w", err)
		}
		var rec Record
		if err := msgpack.Unmarshal(e.Value, &rec); err != nil {
			return nil, fmt.Errorf("enroll: decode record %s: %w", e.Key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Remove deletes all enrollment records for a principal.
func (r *Registry) Remove(ctx context.Context, principal string) error {
	for e, err := range r.store.List(ctx, "enroll/"+principal+"/") {
		if err != nil {
			return fmt.Errorf("enroll: list records: %w", err)
		}
		if err := r.store.Delete(ctx, e.Key); err != nil {
			return fmt.Errorf("enroll: delete %s: %w", e.Key, err)
		}
	}
	return nil
}
