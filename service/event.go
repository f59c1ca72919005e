package service

import (
	"github.com/duke-git/lancet/v2/eventbus"
)

const (
	EventProgramSaved   = "program.saved"
	EventProgramCreated = "program.created"
)

type Event struct {
	Type string
	Pid  string
	Data any
	Err  error
}

// Bus routes program events by type. The zero value is not usable; use NewBus.
type Bus struct {
	eb *eventbus.EventBus[Event]
}

func NewBus() *Bus {
	return &Bus{eb: eventbus.NewEventBus[Event]()}
}

var defaultBus = NewBus()

func Default() *Bus {
	return defaultBus
}

func (b *Bus) Publish(eventType string, pid string, data any, err error) {
	event := Event{
		Type: eventType,
		Pid:  pid,
		Data: data,
		Err:  err,
	}
	b.eb.Publish(eventbus.Event[Event]{Topic: eventType, Payload: event})
}

// Subscribe registers an asynchronous handler for eventType.
func (b *Bus) Subscribe(eventType string, handler func(eventData Event)) {
	b.eb.Subscribe(eventType, handler, true, 0, nil)
}
