package entity

import (
	"github.com/XANi/mqttlight/light"
	"sync"
)

type published struct {
	Topic   string
	Payload string
	QoS     byte
	Retain  bool
}

type fakePublisher struct {
	msgs []published
	sync.Mutex
}

func (p *fakePublisher) Publish(topic, payload string, qos byte, retain bool) {
	p.Lock()
	defer p.Unlock()
	p.msgs = append(p.msgs, published{topic, payload, qos, retain})
}

func (p *fakePublisher) take() []published {
	p.Lock()
	defer p.Unlock()
	out := p.msgs
	p.msgs = nil
	return out
}

type fakeSubscriber struct {
	topics []string
	calls  int
}

func (s *fakeSubscriber) Sync(topics []string) {
	s.topics = topics
	s.calls++
}

type memStore struct {
	states map[string]light.State
	sync.Mutex
}

func newMemStore() *memStore { return &memStore{states: map[string]light.State{}} }

func (m *memStore) Load(id string) (light.State, bool, error) {
	m.Lock()
	defer m.Unlock()
	st, ok := m.states[id]
	return st, ok, nil
}

func (m *memStore) Save(id string, st light.State) error {
	m.Lock()
	defer m.Unlock()
	m.states[id] = st
	return nil
}

func (m *memStore) Delete(id string) error {
	m.Lock()
	defer m.Unlock()
	delete(m.states, id)
	return nil
}

type fixture struct {
	reg   *Registry
	pub   *fakePublisher
	sub   *fakeSubscriber
	store *memStore
}

func newFixture() *fixture {
	f := &fixture{pub: &fakePublisher{}, sub: &fakeSubscriber{}, store: newMemStore()}
	f.reg = NewRegistry(Config{Publisher: f.pub, Subscriber: f.sub, Store: f.store})
	return f
}

func ptr[T any](v T) *T { return &v }
