// Package aif holds the vocabulary shared by the AIM runtime packages.
package aif

import "fmt"

// Kind identifies which layer of the runtime a Component belongs to.
type Kind int

const (
	KindAIM Kind = iota
	KindAIW
	KindAIF
)

func (k Kind) String() string {
	switch k {
	case KindAIM:
		return "aim"
	case KindAIW:
		return "aiw"
	case KindAIF:
		return "aif"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Component is the immutable identity of an AIM, AIW or AIF.
type Component struct {
	Name string
	Kind Kind
}

func NewComponent(name string, kind Kind) Component {
	return Component{Name: name, Kind: kind}
}

func (c Component) String() string {
	return c.Kind.String() + ":" + c.Name
}

// Channel is a delivery path inside a MessageStore.
// Valid channels start at 1; 0 is unset.
type Channel int

// NoChannel is returned by allocation when the allocator is busy.
const NoChannel Channel = -1

func (c Channel) Valid() bool { return c > 0 }

// Message is the unit carried by a MessageStore.
type Message struct {
	Data      []byte
	Timestamp int64
}

// Clone returns a copy that does not share the payload buffer.
func (m Message) Clone() Message {
	if m.Data == nil {
		return m
	}
	data := make([]byte, len(m.Data))
	copy(data, m.Data)
	return Message{Data: data, Timestamp: m.Timestamp}
}
