package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the frame format of a session
type Encoding int

const (
	// JSON frames are sent as websocket text messages
	JSON Encoding = iota
	// MsgPack frames are sent as websocket binary messages
	MsgPack
)

// ErrEmptyFrame is returned when decoding a zero-length frame
var ErrEmptyFrame = errors.New("protocol: empty frame")

// ParseEncoding maps a query value to an Encoding; unknown values fall back to JSON
func ParseEncoding(s string) Encoding {
	switch strings.ToLower(s) {
	case "msgpack", "mp", "binary":
		return MsgPack
	}
	return JSON
}

func (e Encoding) String() string {
	if e == MsgPack {
		return "msgpack"
	}
	return "json"
}

// Binary reports whether frames of this encoding go out as binary websocket messages
func (e Encoding) Binary() bool {
	return e == MsgPack
}

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

type jsonEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

type msgpackEnvelope struct {
	T string             `msgpack:"t"`
	D msgpack.RawMessage `msgpack:"d,omitempty"`
}

// Frame is a decoded envelope whose payload is still in wire form
type Frame struct {
	T   string
	enc Encoding
	raw []byte
}

// Marshal encodes a typed message into a frame of the given encoding
func Marshal(enc Encoding, t string, data interface{}) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("protocol: marshal: empty message type")
	}
	env := Envelope{T: t, Data: data}
	if enc == MsgPack {
		var buf bytes.Buffer
		e := msgpack.NewEncoder(&buf)
		e.SetCustomStructTag("json")
		if err := e.Encode(env); err != nil {
			return nil, fmt.Errorf("protocol: marshal %s: %w", t, err)
		}
		return buf.Bytes(), nil
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s: %w", t, err)
	}
	return b, nil
}

// Unmarshal decodes the envelope of a frame, leaving the payload for Frame.Decode
func Unmarshal(enc Encoding, b []byte) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	if enc == MsgPack {
		var env msgpackEnvelope
		if err := msgpack.Unmarshal(b, &env); err != nil {
			return Frame{}, fmt.Errorf("protocol: unmarshal envelope: %w", err)
		}
		return Frame{T: env.T, enc: enc, raw: env.D}, nil
	}
	var env jsonEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Frame{}, fmt.Errorf("protocol: unmarshal envelope: %w", err)
	}
	return Frame{T: env.T, enc: enc, raw: env.D}, nil
}

// Decode unmarshals the frame payload into v
func (f Frame) Decode(v interface{}) error {
	if len(f.raw) == 0 {
		return fmt.Errorf("protocol: empty payload for %q", f.T)
	}
	if f.enc == MsgPack {
		d := msgpack.NewDecoder(bytes.NewReader(f.raw))
		d.SetCustomStructTag("json")
		if err := d.Decode(v); err != nil {
			return fmt.Errorf("protocol: decode %s: %w", f.T, err)
		}
		return nil
	}
	if err := json.Unmarshal(f.raw, v); err != nil {
		return fmt.Errorf("protocol: decode %s: %w", f.T, err)
	}
	return nil
}

// DecodePayload is a typed shorthand for Frame.Decode
func DecodePayload[T any](f Frame) (T, error) {
	var out T
	err := f.Decode(&out)
	return out, err
}
