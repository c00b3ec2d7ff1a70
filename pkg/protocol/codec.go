package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Common codec errors.
var (
	ErrInvalidMessage = errors.New("invalid message format")
	ErrUnknownCodec   = errors.New("unknown codec")
)

// Websocket subprotocols understood by the live host.
const (
	SubprotocolJSON    = "intake.json"
	SubprotocolMsgPack = "intake.msgpack"
)

// Codec encodes and decodes frames.
type Codec interface {
	Encode(msg *Message) ([]byte, error)
	Decode(data []byte) (*Message, error)
	Name() string
	// Binary reports whether frames must be sent as binary websocket messages.
	Binary() bool
}

// JSONCodec is the default codec, used by the browser binding script.
type JSONCodec struct{}

func (JSONCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Event == "" {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}

func (JSONCodec) Name() string { return SubprotocolJSON }
func (JSONCodec) Binary() bool { return false }

// MsgPackCodec encodes frames with MessagePack.
type MsgPackCodec struct{}

func (MsgPackCodec) Encode(msg *Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (MsgPackCodec) Decode(data []byte) (*Message, error) {
	var msg Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Event == "" {
		return nil, ErrInvalidMessage
	}
	return &msg, nil
}

func (MsgPackCodec) Name() string { return SubprotocolMsgPack }
func (MsgPackCodec) Binary() bool { return true }

// Subprotocols lists the negotiable subprotocols in preference order.
func Subprotocols() []string {
	return []string{SubprotocolJSON, SubprotocolMsgPack}
}

// ForSubprotocol returns the codec for a negotiated subprotocol. The empty
// string means the client did not ask for one and gets JSON.
func ForSubprotocol(name string) (Codec, error) {
	switch name {
	case "", SubprotocolJSON:
		return JSONCodec{}, nil
	case SubprotocolMsgPack:
		return MsgPackCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}
