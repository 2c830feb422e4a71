package entity

import (
	"fmt"
	"github.com/XANi/mqttlight/light"
	"go.uber.org/zap"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Subscriber keeps the transport subscribed to exactly the given topics.
type Subscriber interface {
	Sync(topics []string)
}

type Config struct {
	Publisher  Publisher
	Subscriber Subscriber
	// Store is optional; without it nothing survives a restart.
	Store     StateStore
	Templater light.Templater
	Logger    *zap.SugaredLogger
}

// Registry holds every light, keyed by config id (static config name or discovery id).
type Registry struct {
	cfg      Config
	lights   map[string]*Light
	unique   map[string]string
	entities map[string]string
	log      *zap.SugaredLogger
	sync.RWMutex
}

func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Registry{
		cfg:      cfg,
		lights:   map[string]*Light{},
		unique:   map[string]string{},
		entities: map[string]string{},
		log:      cfg.Logger,
	}
}

// Upsert creates the light or reconfigures it in place, keeping its entity id and state.
func (r *Registry) Upsert(id string, cfg light.Config) (*Light, error) {
	l, err := r.upsert(id, cfg)
	if err != nil {
		return nil, err
	}
	r.sync()
	return l, nil
}

func (r *Registry) upsert(id string, cfg light.Config) (*Light, error) {
	r.Lock()
	defer r.Unlock()
	if owner, ok := r.unique[cfg.UniqueID]; ok && cfg.UniqueID != "" && owner != id {
		return nil, fmt.Errorf("%w: %s (owned by %s)", ErrDuplicateUniqueID, cfg.UniqueID, owner)
	}
	if l, ok := r.lights[id]; ok {
		old := l.Config()
		if err := l.reconfigure(cfg); err != nil {
			return nil, err
		}
		if old.UniqueID != "" {
			delete(r.unique, old.UniqueID)
		}
		if cfg.UniqueID != "" {
			r.unique[cfg.UniqueID] = id
		}
		r.log.Infof("updated light %s [%s]", l.entityID, id)
		return l, nil
	}
	log := r.log.Named(id)
	tr, err := light.New(cfg, r.cfg.Templater, log)
	if err != nil {
		return nil, err
	}
	entityID := r.newEntityID(tr.Config().Name)
	l := newLight(id, entityID, tr, r.cfg.Publisher, r.cfg.Store, log)
	r.lights[id] = l
	r.entities[entityID] = id
	if cfg.UniqueID != "" {
		r.unique[cfg.UniqueID] = id
	}
	r.log.Infof("added light %s [%s]", entityID, id)
	return l, nil
}

// Remove drops the light and its saved state.
func (r *Registry) Remove(id string) bool {
	r.Lock()
	l, ok := r.lights[id]
	if ok {
		delete(r.lights, id)
		delete(r.entities, l.entityID)
		if uid := l.Config().UniqueID; uid != "" {
			delete(r.unique, uid)
		}
	}
	r.Unlock()
	if !ok {
		return false
	}
	if r.cfg.Store != nil {
		if err := r.cfg.Store.Delete(id); err != nil {
			r.log.Warnf("could not delete saved state of %s: %s", id, err)
		}
	}
	r.log.Infof("removed light %s [%s]", l.entityID, id)
	r.sync()
	return true
}

// Get looks a light up by entity id.
func (r *Registry) Get(entityID string) (*Light, error) {
	r.RLock()
	defer r.RUnlock()
	if id, ok := r.entities[entityID]; ok {
		return r.lights[id], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, entityID)
}

// ByID looks a light up by config id.
func (r *Registry) ByID(id string) (*Light, bool) {
	r.RLock()
	defer r.RUnlock()
	l, ok := r.lights[id]
	return l, ok
}

// List returns all lights ordered by entity id.
func (r *Registry) List() []*Light {
	r.RLock()
	out := make([]*Light, 0, len(r.lights))
	for _, l := range r.lights {
		out = append(out, l)
	}
	r.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].entityID < out[j].entityID })
	return out
}

// Dispatch hands a message to every light listening on topic.
func (r *Registry) Dispatch(topic string, payload []byte) {
	r.RLock()
	defer r.RUnlock()
	for _, l := range r.lights {
		l.HandleMessage(topic, payload)
	}
}

// Topics returns the union of topics all lights listen on.
func (r *Registry) Topics() []string {
	r.RLock()
	defer r.RUnlock()
	var out []string
	for _, l := range r.lights {
		out = append(out, l.Topics()...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (r *Registry) sync() {
	if r.cfg.Subscriber != nil {
		r.cfg.Subscriber.Sync(r.Topics())
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	s = strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "_"), "_")
	if s == "" {
		return "unnamed"
	}
	return s
}

func (r *Registry) newEntityID(name string) string {
	base := "light." + slugify(name)
	id := base
	for i := 2; ; i++ {
		if _, taken := r.entities[id]; !taken {
			return id
		}
		id = base + "_" + strconv.Itoa(i)
	}
}
