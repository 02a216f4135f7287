// Package codec implements the pluggable serializers used to encode the
// header and payload of every message exchanged by a node.
//
// A serializer must be able to round-trip arbitrary structured values made
// of maps with string keys, lists, strings, numbers, booleans and nil, as well
// as the structs of the protocol package. Numbers may change their concrete
// Go type on the way (e.g. int to uint64 or json.Number); consumers coerce.
package codec

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/srand/jolt/node/pkg/utils"
)

// Codec serializes values to bytes and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

const (
	compressedSuffix = "+zstd"

	// Default is the serializer used when none is configured.
	Default = "cbor"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]func() (Codec, error){
		"cbor":  CBOR,
		"json":  func() (Codec, error) { return JSON(), nil },
		"proto": func() (Codec, error) { return Proto(), nil },
	}
)

// Register makes a serializer available to Lookup under its name.
func Register(name string, factory func() (Codec, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Lookup returns the serializer with the given name. Any registered name
// may be suffixed with "+zstd" to compress the serialized bytes.
func Lookup(name string) (Codec, error) {
	if name == "" {
		name = Default
	}

	base, compressed := strings.CutSuffix(name, compressedSuffix)

	registryMu.RLock()
	factory, ok := registry[base]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown serializer %q", utils.ErrNotFound, name)
	}

	c, err := factory()
	if err != nil {
		return nil, err
	}

	if compressed {
		return Compressed(c)
	}
	return c, nil
}

// Names lists the registered serializers.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
