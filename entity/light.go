// Package entity wraps light translators into addressable lights that
// publish their commands, persist their state and render what they report.
package entity

import (
	"github.com/XANi/mqttlight/light"
	"go.uber.org/zap"
	"sync"
)

// Publisher sends a single MQTT message without waiting for delivery.
type Publisher interface {
	Publish(topic, payload string, qos byte, retain bool)
}

// StateStore persists last known state between restarts.
type StateStore interface {
	Load(id string) (light.State, bool, error)
	Save(id string, st light.State) error
	Delete(id string) error
}

// Light serializes every call into its translator.
type Light struct {
	id       string
	entityID string
	tr       *light.Translator
	pub      Publisher
	store    StateStore
	log      *zap.SugaredLogger
	sync.Mutex
}

func newLight(id, entityID string, tr *light.Translator, pub Publisher, store StateStore, log *zap.SugaredLogger) *Light {
	l := &Light{
		id:       id,
		entityID: entityID,
		tr:       tr,
		pub:      pub,
		store:    store,
		log:      log,
	}
	if store != nil {
		st, ok, err := store.Load(id)
		switch {
		case err != nil:
			log.Warnf("could not load saved state: %s", err)
		case ok:
			tr.Restore(st)
			log.Debugf("restored state %+v", st)
		}
	}
	return l
}

func (l *Light) ID() string       { return l.id }
func (l *Light) EntityID() string { return l.entityID }

func (l *Light) Config() light.Config {
	l.Lock()
	defer l.Unlock()
	return l.tr.Config()
}

func (l *Light) State() light.State {
	l.Lock()
	defer l.Unlock()
	return l.tr.State()
}

func (l *Light) Topics() []string {
	l.Lock()
	defer l.Unlock()
	return l.tr.Topics()
}

// HandleMessage feeds an inbound message to the translator and reports whether state changed.
func (l *Light) HandleMessage(topic string, payload []byte) bool {
	l.Lock()
	defer l.Unlock()
	u, ok := l.tr.HandleMessage(topic, payload)
	if !ok {
		return false
	}
	l.log.Debugf("%s changed %s", u.Topic, u.Changed)
	l.persist(u.State)
	return true
}

func (l *Light) TurnOn(req light.Request) {
	l.apply(light.Command{On: true, Request: req})
}

func (l *Light) TurnOff() {
	l.apply(light.Command{})
}

func (l *Light) apply(cmd light.Command) {
	l.Lock()
	defer l.Unlock()
	for _, m := range l.tr.Apply(cmd) {
		l.pub.Publish(m.Topic, m.Payload, m.QoS, m.Retain)
	}
	l.persist(l.tr.State())
}

func (l *Light) reconfigure(cfg light.Config) error {
	l.Lock()
	defer l.Unlock()
	return l.tr.Reconfigure(cfg)
}

func (l *Light) persist(st light.State) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(l.id, st); err != nil {
		l.log.Warnf("could not save state: %s", err)
	}
}
