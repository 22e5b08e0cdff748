package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Common codec errors.
var (
	ErrInvalidMessage = errors.New("invalid message format")
	ErrUnknownCodec   = errors.New("unknown codec type")
)

// Codec handles message encoding/decoding.
type Codec interface {
	// Encode serializes a message to bytes.
	Encode(msg *Message) ([]byte, error)

	// Decode deserializes bytes to a message.
	Decode(data []byte) (*Message, error)

	// Name returns the codec name.
	Name() string

	// Binary reports whether frames must be sent as binary messages.
	Binary() bool
}

// JSONCodec implements Codec using JSON encoding.
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Encode encodes a message to JSON.
func (c *JSONCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Decode decodes JSON to a message.
func (c *JSONCodec) Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrInvalidMessage)
	}
	return &msg, nil
}

// Name returns "json".
func (c *JSONCodec) Name() string {
	return "json"
}

// Binary returns false.
func (c *JSONCodec) Binary() bool {
	return false
}

// MsgPackCodec implements Codec using MessagePack encoding.
type MsgPackCodec struct{}

// NewMsgPackCodec creates a new MsgPack codec.
func NewMsgPackCodec() *MsgPackCodec {
	return &MsgPackCodec{}
}

// Encode encodes a message to MsgPack.
func (c *MsgPackCodec) Encode(msg *Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

// Decode decodes MsgPack to a message.
func (c *MsgPackCodec) Decode(data []byte) (*Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrInvalidMessage)
	}
	return &msg, nil
}

// Name returns "msgpack".
func (c *MsgPackCodec) Name() string {
	return "msgpack"
}

// Binary returns true.
func (c *MsgPackCodec) Binary() bool {
	return true
}

// CodecRegistry manages available codecs.
type CodecRegistry struct {
	codecs       map[string]Codec
	defaultCodec Codec
	mu           sync.RWMutex
}

// NewCodecRegistry creates a registry holding the JSON and MsgPack codecs,
// with JSON as the default.
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{
		codecs: make(map[string]Codec),
	}
	r.Register(NewJSONCodec())
	r.Register(NewMsgPackCodec())
	r.defaultCodec = r.codecs["json"]
	return r
}

// Register adds a codec to the registry.
func (r *CodecRegistry) Register(codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[codec.Name()] = codec
}

// Get retrieves a codec by name.
func (r *CodecRegistry) Get(name string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[name]
	return c, ok
}

// Default returns the default codec.
func (r *CodecRegistry) Default() Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultCodec
}

// SetDefault sets the default codec.
func (r *CodecRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.codecs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	r.defaultCodec = c
	return nil
}

// DefaultCodecRegistry is the global codec registry.
var DefaultCodecRegistry = NewCodecRegistry()

// Lookup returns the named codec from the default registry. An empty name
// selects the default codec.
func Lookup(name string) (Codec, error) {
	if name == "" {
		return DefaultCodecRegistry.Default(), nil
	}
	c, ok := DefaultCodecRegistry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	return c, nil
}
