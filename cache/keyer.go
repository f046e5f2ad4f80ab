package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Keyer derives deterministic cache keys from structured arguments.
//
// Contract:
// - Determinism: structurally equal inputs produce the same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: inputs that cannot be encoded (funcs, channels, cycles) return an error.
type Keyer interface {
	// Key derives a key for input within scope.
	Key(scope string, input any) (string, error)
}

// DefaultKeyer derives SHA-256 based keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
// Format: <scope>:<hash>
// where hash is the first 32 hex characters of SHA-256(canonical JSON(input))
func (k *DefaultKeyer) Key(scope string, input any) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}

	hash := sha256.Sum256(canonical)
	return scope + ":" + hex.EncodeToString(hash[:16]), nil
}

// FastKeyer derives keys with 64-bit xxHash. It is several times cheaper than
// DefaultKeyer and suited to scopes with few distinct inputs, where the
// shorter hash cannot collide in practice.
type FastKeyer struct{}

// NewFastKeyer creates a new xxHash keyer.
func NewFastKeyer() *FastKeyer {
	return &FastKeyer{}
}

// Key generates a deterministic cache key.
// Format: <scope>:<hash> where hash is 16 hex characters.
func (k *FastKeyer) Key(scope string, input any) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}
	sum := xxhash.Sum64(canonical)
	return fmt.Sprintf("%s:%016x", scope, sum), nil
}

// KeyerByName returns the keyer registered under name: "sha256" (the
// default for an empty name) or "xxhash".
func KeyerByName(name string) (Keyer, error) {
	switch name {
	case "", "sha256":
		return NewDefaultKeyer(), nil
	case "xxhash":
		return NewFastKeyer(), nil
	default:
		return nil, fmt.Errorf("cache: unknown keyer %q", name)
	}
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any) ([]byte, error) {
	w := walker{active: make(map[unsafe.Pointer]struct{})}
	return w.value(v)
}

// walker tracks the maps and slices on the current path so a container that
// holds itself fails with ErrCyclicInput instead of recursing forever.
type walker struct {
	active map[unsafe.Pointer]struct{}
}

func (w walker) value(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return w.object(val)
		}
		return w.enter(reflect.ValueOf(val).UnsafePointer(), func() ([]byte, error) {
			return w.object(val)
		})
	case []any:
		if len(val) == 0 {
			return w.array(val)
		}
		return w.enter(unsafe.Pointer(&val[0]), func() ([]byte, error) {
			return w.array(val)
		})
	default:
		// encoding/json sorts map keys and rejects funcs, channels and cycles.
		return json.Marshal(v)
	}
}

func (w walker) enter(p unsafe.Pointer, fn func() ([]byte, error)) ([]byte, error) {
	if _, ok := w.active[p]; ok {
		return nil, ErrCyclicInput
	}
	w.active[p] = struct{}{}
	defer delete(w.active, p)
	return fn()
}

func (w walker) object(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := w.value(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func (w walker) array(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := w.value(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

var (
	_ Keyer = (*DefaultKeyer)(nil)
	_ Keyer = (*FastKeyer)(nil)
)
