package queue

import (
	"fmt"
	"github.com/XANi/mqttlight/entity"
	"github.com/XANi/mqttlight/light"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

const tokenTimeout = 5 * time.Second

// Registry is what the queue feeds: light topic messages and discovered configs.
type Registry interface {
	Dispatch(topic string, payload []byte)
	Upsert(id string, cfg light.Config) (*entity.Light, error)
	Remove(id string) bool
}

type Queue struct {
	client          mqtt.Client
	registry        Registry
	topics          map[string]bool
	qos             byte
	discoveryPrefix string
	log             *zap.SugaredLogger
	sync.RWMutex
}

type Config struct {
	MQTTAddr string
	// ClientID defaults to mqttlight-<random>
	ClientID string
	// QoS used for subscriptions
	QoS byte
	// DiscoveryPrefix enables discovery when not empty
	DiscoveryPrefix string
	Logger          *zap.SugaredLogger
}

func New(cfg *Config) (*Queue, error) {
	mqttURL, err := url.Parse(cfg.MQTTAddr)
	if err != nil {
		return nil, fmt.Errorf("cannot parse MQTT URL: %w", err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "mqttlight-" + strings.Split(uuid.NewString(), "-")[0]
	}
	p, _ := mqttURL.User.Password()
	broker := *mqttURL
	broker.User = nil
	q := newQueue(cfg)
	opts := mqtt.NewClientOptions().
		AddBroker(broker.String()).
		SetUsername(mqttURL.User.Username()).
		SetPassword(p).
		SetClientID(cfg.ClientID).
		SetKeepAlive(10 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			q.log.Infof("connected to %s as %s", broker.Host, cfg.ClientID)
			q.resubscribe()
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			q.log.Warnf("connection lost: %s", err)
		})
	q.client = mqtt.NewClient(opts)
	token := q.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return nil, fmt.Errorf("timeout connecting to %s", broker.Host)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("error connecting to %s: %w", broker.Host, err)
	}
	return q, nil
}

func newQueue(cfg *Config) *Queue {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Queue{
		topics:          map[string]bool{},
		qos:             cfg.QoS,
		discoveryPrefix: cfg.DiscoveryPrefix,
		log:             log,
	}
}

// Attach starts routing messages to reg and, if enabled, subscribes to discovery.
func (q *Queue) Attach(reg Registry) error {
	q.Lock()
	q.registry = reg
	q.Unlock()
	if q.discoveryPrefix == "" {
		return nil
	}
	return q.subscribe(q.discoveryTopic(), q.onDiscovery)
}

func (q *Queue) discoveryTopic() string {
	return q.discoveryPrefix + "/light/#"
}

// Publish sends without waiting for delivery; failures are only logged.
func (q *Queue) Publish(topic, payload string, qos byte, retain bool) {
	if !q.client.IsConnected() {
		q.log.Warnf("dropping %s=%s: %s", topic, payload, ErrNotConnected)
		return
	}
	token := q.client.Publish(topic, qos, retain, payload)
	go func() {
		if !token.WaitTimeout(tokenTimeout) {
			q.log.Warnf("timeout publishing to %s", topic)
			return
		}
		if err := token.Error(); err != nil {
			q.log.Warnf("error publishing to %s: %s", topic, err)
		}
	}()
}

// Sync subscribes to topics not yet subscribed and drops the ones no longer needed.
func (q *Queue) Sync(topics []string) {
	q.Lock()
	var add, remove []string
	want := map[string]bool{}
	for _, t := range topics {
		want[t] = true
		if !q.topics[t] {
			add = append(add, t)
		}
	}
	for t := range q.topics {
		if !want[t] {
			remove = append(remove, t)
		}
	}
	q.topics = want
	q.Unlock()

	slices.Sort(remove)
	if len(remove) > 0 {
		q.log.Debugf("unsubscribing %v", remove)
		token := q.client.Unsubscribe(remove...)
		if token.WaitTimeout(tokenTimeout) && token.Error() != nil {
			q.log.Warnf("error unsubscribing %v: %s", remove, token.Error())
		}
	}
	for _, t := range add {
		if err := q.subscribe(t, q.onMessage); err != nil {
			q.log.Warnf("%s", err)
		}
	}
}

// Topics returns the light topics currently subscribed.
func (q *Queue) Topics() []string {
	q.RLock()
	defer q.RUnlock()
	out := make([]string, 0, len(q.topics))
	for t := range q.topics {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Check reports whether the broker connection is up.
func (q *Queue) Check() error {
	if q.client == nil || !q.client.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

func (q *Queue) Close() {
	q.client.Disconnect(250)
}

func (q *Queue) subscribe(topic string, handler mqtt.MessageHandler) error {
	token := q.client.Subscribe(topic, q.qos, handler)
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("timeout subscribing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("error subscribing to %s: %w", topic, err)
	}
	return nil
}

// resubscribe restores subscriptions after a reconnect with a clean session.
func (q *Queue) resubscribe() {
	q.RLock()
	attached := q.registry != nil
	topics := make([]string, 0, len(q.topics))
	for t := range q.topics {
		topics = append(topics, t)
	}
	q.RUnlock()
	if attached && q.discoveryPrefix != "" {
		if err := q.subscribe(q.discoveryTopic(), q.onDiscovery); err != nil {
			q.log.Warnf("%s", err)
		}
	}
	for _, t := range topics {
		if err := q.subscribe(t, q.onMessage); err != nil {
			q.log.Warnf("%s", err)
		}
	}
}

func (q *Queue) onMessage(c mqtt.Client, m mqtt.Message) {
	q.RLock()
	reg := q.registry
	q.RUnlock()
	if reg == nil {
		return
	}
	reg.Dispatch(m.Topic(), m.Payload())
}

func (q *Queue) onDiscovery(c mqtt.Client, m mqtt.Message) {
	q.RLock()
	reg := q.registry
	q.RUnlock()
	if reg == nil {
		return
	}
	id, ok := DiscoveryID(q.discoveryPrefix, m.Topic())
	if !ok {
		q.log.Debugf("ignoring discovery topic %s", m.Topic())
		return
	}
	if len(m.Payload()) == 0 {
		if reg.Remove(id) {
			q.log.Infof("light %s removed by discovery", id)
		}
		return
	}
	cfg, err := ParseDiscovery(m.Payload())
	if err != nil {
		q.log.Warnf("could not decode discovery %s: %s", m.Topic(), err)
		return
	}
	q.log.Debugf("received %s: %+v", m.Topic(), cfg)
	if _, err := reg.Upsert(id, cfg); err != nil {
		q.log.Warnf("ignoring discovery %s: %s", m.Topic(), err)
	}
}
