// Package mitproto implements the binary frame format spoken between the
// gateway and MIT workers. Frames are protobuf messages (see mit.proto)
// encoded and decoded with the protowire package; the message set is three
// fixed frames wrapped in a oneof envelope.
package mitproto

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers.
const (
	fieldNewTask    = 1
	fieldStatus     = 2
	fieldFinishTask = 3
)

// ErrEmptyMessage is returned for an envelope with no payload.
var ErrEmptyMessage = errors.New("mitproto: empty message")

// Message is one of NewTask, Status or FinishTask.
type Message interface {
	isMessage()
}

// NewTask asks a worker to translate one image. Gateway to worker only.
type NewTask struct {
	ID             string
	SourceImage    []byte
	TargetLanguage string
	Detector       string
	Direction      string
	Translator     string
	Size           string
}

// Status reports the phase a worker is in for a task.
type Status struct {
	ID     string
	Status string
}

// FinishTask delivers the rendered translation mask for a task.
type FinishTask struct {
	ID              string
	TranslationMask []byte
}

func (*NewTask) isMessage()    {}
func (*Status) isMessage()     {}
func (*FinishTask) isMessage() {}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// Marshal encodes a message into an envelope frame.
func Marshal(msg Message) ([]byte, error) {
	var num protowire.Number
	var inner []byte

	switch m := msg.(type) {
	case *NewTask:
		num = fieldNewTask
		inner = appendStringField(inner, 1, m.ID)
		inner = appendBytesField(inner, 2, m.SourceImage)
		inner = appendStringField(inner, 3, m.TargetLanguage)
		inner = appendStringField(inner, 4, m.Detector)
		inner = appendStringField(inner, 5, m.Direction)
		inner = appendStringField(inner, 6, m.Translator)
		inner = appendStringField(inner, 7, m.Size)
	case *Status:
		num = fieldStatus
		inner = appendStringField(inner, 1, m.ID)
		inner = appendStringField(inner, 2, m.Status)
	case *FinishTask:
		num = fieldFinishTask
		inner = appendStringField(inner, 1, m.ID)
		inner = appendBytesField(inner, 2, m.TranslationMask)
	default:
		return nil, fmt.Errorf("mitproto: unknown message type %T", msg)
	}

	var b []byte
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	return b, nil
}

// fields iterates length-delimited fields of one message body.
func fields(b []byte, fn func(num protowire.Number, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.BytesType {
			// Skip fields of other wire types.
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if err := fn(num, v); err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal decodes an envelope frame. When a frame carries several oneof
// fields the last one wins, matching protobuf semantics.
func Unmarshal(b []byte) (Message, error) {
	var msg Message

	err := fields(b, func(num protowire.Number, v []byte) error {
		switch num {
		case fieldNewTask:
			m := &NewTask{}
			if err := m.unmarshal(v); err != nil {
				return err
			}
			msg = m
		case fieldStatus:
			m := &Status{}
			if err := m.unmarshal(v); err != nil {
				return err
			}
			msg = m
		case fieldFinishTask:
			m := &FinishTask{}
			if err := m.unmarshal(v); err != nil {
				return err
			}
			msg = m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrEmptyMessage
	}
	return msg, nil
}

func (m *NewTask) unmarshal(b []byte) error {
	return fields(b, func(num protowire.Number, v []byte) error {
		switch num {
		case 1:
			m.ID = string(v)
		case 2:
			m.SourceImage = append([]byte(nil), v...)
		case 3:
			m.TargetLanguage = string(v)
		case 4:
			m.Detector = string(v)
		case 5:
			m.Direction = string(v)
		case 6:
			m.Translator = string(v)
		case 7:
			m.Size = string(v)
		}
		return nil
	})
}

func (m *Status) unmarshal(b []byte) error {
	return fields(b, func(num protowire.Number, v []byte) error {
		switch num {
		case 1:
			m.ID = string(v)
		case 2:
			m.Status = string(v)
		}
		return nil
	})
}

func (m *FinishTask) unmarshal(b []byte) error {
	return fields(b, func(num protowire.Number, v []byte) error {
		switch num {
		case 1:
			m.ID = string(v)
		case 2:
			m.TranslationMask = append([]byte(nil), v...)
		}
		return nil
	})
}
