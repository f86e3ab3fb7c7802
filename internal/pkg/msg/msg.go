package msg

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Topic is the subject of a message.
type Topic int

// Evaluation topics.
const (
	Point   Topic = iota // per component, per mission point samples
	Sizing               // per component sizing reports
	Summary              // one per evaluation
)

func (t Topic) String() string {
	switch t {
	case Point:
		return "point"
	case Sizing:
		return "sizing"
	case Summary:
		return "summary"
	}
	return "unknown"
}

// Publisher is an interface for objects that allow subscribtion to their events
type Publisher interface {
	Subscribe(uuid.UUID, Topic) (<-chan Msg, error)
	Unsubscribe(uuid.UUID)
}

// Msg is the unit published on a PubSub.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factor function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

// Topic returns the message topic
func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}

// PubSub fans messages out to the subscribers of their topic.
type PubSub struct {
	mux    *sync.Mutex
	pid    uuid.UUID
	subs   map[Topic]map[uuid.UUID]chan Msg
	closed bool
}

// NewPublisher returns a PubSub sending on behalf of pid.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		mux:  &sync.Mutex{},
		pid:  pid,
		subs: make(map[Topic]map[uuid.UUID]chan Msg),
	}
}

// PID is the publisher's process id.
func (p *PubSub) PID() uuid.UUID {
	return p.pid
}

// Subscribe returns a channel on which the specified topic is broadcast
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return nil, errors.New("publisher is closed")
	}
	if _, ok := p.subs[topic]; !ok {
		p.subs[topic] = make(map[uuid.UUID]chan Msg)
	}
	if _, ok := p.subs[topic][pid]; ok {
		err := fmt.Sprintf("%v already subscribed to %v.", pid, topic)
		return nil, errors.New(err)
	}
	ch := make(chan Msg, 50)
	p.subs[topic][pid] = ch
	return ch, nil
}

// Unsubscribe closes every channel held by pid.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, subs := range p.subs {
		if ch, ok := subs[pid]; ok {
			close(ch)
			delete(subs, pid)
		}
	}
}

// Publish broadcasts payload on topic.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.Forward(New(p.pid, topic, payload))
}

// Forward broadcasts m unchanged, keeping its sender.
func (p *PubSub) Forward(m Msg) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return
	}
	for _, ch := range p.subs[m.Topic()] {
		ch <- m
	}
}

// Close ends every subscription. Subscribers see their channels closed once
// drained.
func (p *PubSub) Close() {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, subs := range p.subs {
		for pid, ch := range subs {
			close(ch)
			delete(subs, pid)
		}
	}
}
