package web

import (
	"fmt"
	"github.com/XANi/mqttlight/entity"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"net/http"
	"time"
)

// Lights is the part of the registry exposed over HTTP.
type Lights interface {
	List() []*entity.Light
	Get(entityID string) (*entity.Light, error)
}

type Checker interface {
	Check() error
}

type Config struct {
	Logger     *zap.SugaredLogger
	AccessLog  *zap.SugaredLogger
	ListenAddr string
	Lights     Lights
	// Health is optional; without it /healthz always succeeds.
	Health Checker
}

type WebBackend struct {
	l   *zap.SugaredLogger
	al  *zap.SugaredLogger
	r   *gin.Engine
	cfg Config
}

func New(cfg Config) (*WebBackend, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("missing logger")
	}
	if cfg.Lights == nil {
		return nil, fmt.Errorf("missing lights")
	}
	if cfg.AccessLog == nil {
		cfg.AccessLog = cfg.Logger.Named("access")
	}
	w := WebBackend{
		l:   cfg.Logger,
		al:  cfg.AccessLog,
		cfg: cfg,
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(ginzap.Ginzap(w.al.Desugar(), time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(w.l.Desugar(), true))
	r.GET("/healthz", w.Health)
	api := r.Group("/api")
	api.GET("/lights", w.ListLights)
	api.GET("/lights/:id", w.GetLight)
	api.POST("/lights/:id/turn_on", w.TurnOn)
	api.POST("/lights/:id/turn_off", w.TurnOff)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	w.r = r
	return &w, nil
}

func (b *WebBackend) Handler() http.Handler {
	return b.r
}

func (b *WebBackend) Run() error {
	b.l.Infof("listening on %s", b.cfg.ListenAddr)
	return b.r.Run(b.cfg.ListenAddr)
}
