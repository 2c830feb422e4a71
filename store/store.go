// Package store keeps the last known state of every light so optimistic
// lights come back the way they were after a restart.
package store

import (
	"errors"
	"fmt"
	"github.com/XANi/mqttlight/light"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"time"
)

var ErrNotFound = errors.New("no saved state")

// LightRecord is one row per light id. Nullable columns mirror the
// "unknown" attributes of light.State.
type LightRecord struct {
	ID         string `gorm:"primaryKey"`
	On         bool
	Brightness *int
	ColorMode  string
	Color1     float64
	Color2     float64
	Color3     float64
	ColorTemp  *int
	WhiteValue *int
	Effect     *string
	UpdatedAt  time.Time
}

type Config struct {
	// Driver is sqlite or postgres
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Logger *zap.SugaredLogger `yaml:"-"`
}

type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", cfg.Driver, err)
	}
	if err := db.AutoMigrate(&LightRecord{}); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Get(id string) (LightRecord, error) {
	var rec LightRecord
	err := s.db.Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, ErrNotFound
	}
	return rec, err
}

// Load returns the saved state of id; ok is false when nothing was saved.
func (s *Store) Load(id string) (st light.State, ok bool, err error) {
	rec, err := s.Get(id)
	if errors.Is(err, ErrNotFound) {
		return st, false, nil
	}
	if err != nil {
		return st, false, err
	}
	return rec.State(), true, nil
}

func (s *Store) Save(id string, st light.State) error {
	rec := FromState(id, st)
	rec.UpdatedAt = time.Now().UTC()
	if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("error saving %s: %w", id, err)
	}
	s.log.Debugf("saved %s", id)
	return nil
}

func (s *Store) Delete(id string) error {
	return s.db.Delete(&LightRecord{}, "id = ?", id).Error
}

func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func FromState(id string, st light.State) LightRecord {
	rec := LightRecord{
		ID:         id,
		On:         st.On,
		Brightness: st.Brightness,
		ColorTemp:  st.ColorTemp,
		WhiteValue: st.WhiteValue,
		Effect:     st.Effect,
	}
	if st.Color != nil {
		v := st.Color.Components()
		rec.ColorMode = st.Color.Mode().String()
		rec.Color1, rec.Color2, rec.Color3 = v[0], v[1], v[2]
	}
	return rec
}

func (r LightRecord) State() light.State {
	st := light.State{
		On:         r.On,
		Brightness: r.Brightness,
		ColorTemp:  r.ColorTemp,
		WhiteValue: r.WhiteValue,
		Effect:     r.Effect,
	}
	if mode, ok := light.ParseColorMode(r.ColorMode); ok {
		if c, ok := light.ColorFromComponents(mode, [3]float64{r.Color1, r.Color2, r.Color3}); ok {
			st.Color = &c
		}
	}
	return st
}
