package hl7

import (
	"errors"
	"strings"
)

const (
	FieldSeparator     = "|"
	ComponentSeparator = "^"
)

// ErrMissingMSH is returned by Parse when the mandatory header segment is
// absent from a message.
var ErrMissingMSH = errors.New("hl7: message has no MSH segment")

// Segment is one labeled line of an HL7 message.
type Segment struct {
	Name   string
	Fields []string
}

// Field returns the 1-indexed field value, or "" when the segment is shorter
// than i. Short segments are a routine vendor deviation and never an error.
func (s Segment) Field(i int) string {
	if i < 1 || i > len(s.Fields) {
		return ""
	}
	return s.Fields[i-1]
}

// Message is a parsed HL7 v2.x message: its segments in wire order.
type Message struct {
	Segments []Segment
}

// Parse splits a raw HL7 message into segments and fields. Line endings are
// normalized to carriage returns and empty lines dropped. Fields keep their
// component separators intact; callers decompose the components they need.
//
// MSH is numbered the HL7 way: the field separator itself counts as MSH-1,
// so the message type is MSH-9 and the control ID MSH-10. Every other
// segment numbers its first field as the token after the segment name.
func Parse(raw []byte) (*Message, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	msg := &Message{}
	for _, line := range strings.Split(text, "\r") {
		if line == "" {
			continue
		}
		tokens := strings.Split(line, FieldSeparator)
		seg := Segment{Name: tokens[0], Fields: tokens[1:]}
		if seg.Name == "MSH" {
			seg.Fields = append([]string{FieldSeparator}, seg.Fields...)
		}
		msg.Segments = append(msg.Segments, seg)
	}

	if _, ok := msg.Segment("MSH"); !ok {
		return nil, ErrMissingMSH
	}
	return msg, nil
}

// Segment returns the first segment with the given name.
func (m *Message) Segment(name string) (Segment, bool) {
	for _, s := range m.Segments {
		if s.Name == name {
			return s, true
		}
	}
	return Segment{}, false
}

// Field returns field i of the first segment named seg, or "" when either
// is absent.
func (m *Message) Field(seg string, i int) string {
	s, ok := m.Segment(seg)
	if !ok {
		return ""
	}
	return s.Field(i)
}

// Type returns the message type and trigger event from MSH-9, which follows
// the TYPE^TRIGGER convention. The trigger is empty when the component is
// missing.
func (m *Message) Type() (string, string) {
	msgType := m.Field("MSH", 9)
	if idx := strings.Index(msgType, ComponentSeparator); idx >= 0 {
		return msgType[:idx], Component(msgType, 2)
	}
	return msgType, ""
}

// ControlID returns the message control ID from MSH-10.
func (m *Message) ControlID() string {
	return m.Field("MSH", 10)
}

// SendingApplication returns MSH-3.
func (m *Message) SendingApplication() string {
	return m.Field("MSH", 3)
}

// SendingFacility returns MSH-4.
func (m *Message) SendingFacility() string {
	return m.Field("MSH", 4)
}

// Component returns the 1-indexed ^-separated component of a field, or ""
// when the field has fewer components.
func Component(field string, i int) string {
	parts := strings.Split(field, ComponentSeparator)
	if i < 1 || i > len(parts) {
		return ""
	}
	return parts[i-1]
}
