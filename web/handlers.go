package web

import (
	"errors"
	"github.com/XANi/mqttlight/entity"
	"github.com/XANi/mqttlight/light"
	"github.com/gin-gonic/gin"
	"io"
	"net/http"
)

type turnOnRequest struct {
	Brightness *int      `json:"brightness" binding:"omitempty,min=0,max=255"`
	RGBColor   []int     `json:"rgb_color" binding:"omitempty,len=3,dive,min=0,max=255"`
	HSColor    []float64 `json:"hs_color" binding:"omitempty,len=2"`
	XYColor    []float64 `json:"xy_color" binding:"omitempty,len=2,dive,min=0,max=1"`
	ColorTemp  *int      `json:"color_temp" binding:"omitempty,min=1"`
	Kelvin     *int      `json:"kelvin" binding:"omitempty,min=1"`
	WhiteValue *int      `json:"white_value" binding:"omitempty,min=0,max=255"`
	Effect     *string   `json:"effect"`
}

func (r *turnOnRequest) request() light.Request {
	req := light.Request{
		Brightness: r.Brightness,
		ColorTemp:  r.ColorTemp,
		WhiteValue: r.WhiteValue,
		Effect:     r.Effect,
	}
	if r.RGBColor != nil {
		req.RGB = &light.RGB{R: r.RGBColor[0], G: r.RGBColor[1], B: r.RGBColor[2]}
	}
	if r.HSColor != nil {
		req.HS = &light.HS{H: r.HSColor[0], S: r.HSColor[1]}
	}
	if r.XYColor != nil {
		req.XY = &light.XY{X: r.XYColor[0], Y: r.XYColor[1]}
	}
	if r.Kelvin != nil && req.ColorTemp == nil {
		m := light.KelvinToMired(*r.Kelvin)
		req.ColorTemp = &m
	}
	return req
}

func (b *WebBackend) Health(c *gin.Context) {
	if b.cfg.Health != nil {
		if err := b.cfg.Health.Check(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (b *WebBackend) ListLights(c *gin.Context) {
	lights := b.cfg.Lights.List()
	out := make([]entity.Report, 0, len(lights))
	for _, l := range lights {
		out = append(out, l.Report())
	}
	c.JSON(http.StatusOK, out)
}

func (b *WebBackend) GetLight(c *gin.Context) {
	l, ok := b.light(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, l.Report())
}

func (b *WebBackend) TurnOn(c *gin.Context) {
	l, ok := b.light(c)
	if !ok {
		return
	}
	var req turnOnRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l.TurnOn(req.request())
	c.JSON(http.StatusOK, l.Report())
}

func (b *WebBackend) TurnOff(c *gin.Context) {
	l, ok := b.light(c)
	if !ok {
		return
	}
	l.TurnOff()
	c.JSON(http.StatusOK, l.Report())
}

func (b *WebBackend) light(c *gin.Context) (*entity.Light, bool) {
	l, err := b.cfg.Lights.Get(c.Param("id"))
	if errors.Is(err, entity.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	if err != nil {
		b.l.Errorf("error looking up %s: %s", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return l, true
}
