package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire representation. It is a deployment-time choice:
// one process speaks exactly one encoding to every client.
type Encoding string

const (
	// EncodingJSON is UTF-8 JSON text frames.
	EncodingJSON Encoding = "json"
	// EncodingBinary is compact MessagePack map frames with the same
	// logical fields as the JSON form.
	EncodingBinary Encoding = "binary"
)

// ParseEncoding validates an encoding name from configuration.
func ParseEncoding(value string) (Encoding, error) {
	switch Encoding(value) {
	case EncodingJSON, EncodingBinary:
		return Encoding(value), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", value)
	}
}

var (
	// ErrUnknownVariant reports a frame whose discriminant names no known
	// message kind.
	ErrUnknownVariant = errors.New("unknown message variant")

	// ErrMissingField reports a frame of a known kind that lacks a
	// required field.
	ErrMissingField = errors.New("missing required field")
)

// Codec serializes server messages and parses client frames in one chosen
// encoding, stamping outbound messages with the process clock.
type Codec struct {
	encoding Encoding
	clock    *Clock
}

// NewCodec builds a codec for the given encoding and clock.
func NewCodec(encoding Encoding, clock *Clock) *Codec {
	if clock == nil {
		clock = NewClock()
	}
	return &Codec{encoding: encoding, clock: clock}
}

// Encoding reports the codec's wire representation.
func (c *Codec) Encoding() Encoding { return c.encoding }

// Clock exposes the codec's timecode source.
func (c *Codec) Clock() *Clock { return c.clock }

// Encode renders a server message. Messages with a zero timecode are stamped
// with the current one.
func (c *Codec) Encode(msg ServerMessage) ([]byte, error) {
	msg.prepare(c.clock.Now())
	if c.encoding == EncodingBinary {
		return msgpack.Marshal(msg)
	}
	return json.Marshal(msg)
}

// EncodeClient renders a client command. The server itself never calls this;
// it exists for tests and in-process clients.
func (c *Codec) EncodeClient(msg ClientMessage) ([]byte, error) {
	msg.prepareClient()
	if c.encoding == EncodingBinary {
		return msgpack.Marshal(msg)
	}
	return json.Marshal(msg)
}

// rawClientMessage is the permissive shape a client frame is parsed into
// before variant validation. Pointers distinguish absent fields from zeroes.
type rawClientMessage struct {
	Type *string  `json:"type" msgpack:"type"`
	X    *float64 `json:"x" msgpack:"x"`
	Z    *float64 `json:"z" msgpack:"z"`
	Rot  *float64 `json:"rot" msgpack:"rot"`
	T    *uint32  `json:"t" msgpack:"t"`
	Name *string  `json:"name" msgpack:"name"`
}

// Decode parses a client frame into one of the known command variants.
// Unparseable bytes, an unknown discriminant, and missing or mistyped fields
// all come back as an error for the caller to log and drop; decoding never
// takes the connection down.
func (c *Codec) Decode(data []byte) (ClientMessage, error) {
	var raw rawClientMessage
	var err error
	if c.encoding == EncodingBinary {
		err = msgpack.Unmarshal(data, &raw)
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if raw.Type == nil {
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}

	switch *raw.Type {
	case TypeMove:
		if raw.X == nil || raw.Z == nil {
			return nil, fmt.Errorf("%w: move requires x and z", ErrMissingField)
		}
		cmd := &MoveCommand{Type: TypeMove, X: *raw.X, Z: *raw.Z, Rot: raw.Rot}
		if raw.T != nil {
			cmd.T = *raw.T
		}
		return cmd, nil
	case TypeSetName:
		if raw.Name == nil {
			return nil, fmt.Errorf("%w: set_name requires name", ErrMissingField)
		}
		return &SetNameCommand{Type: TypeSetName, Name: *raw.Name}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, *raw.Type)
	}
}
