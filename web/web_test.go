package web

import (
	"errors"
	"github.com/XANi/mqttlight/entity"
	"github.com/XANi/mqttlight/light"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type published struct {
	topic, payload string
}

type fakePublisher struct {
	msgs []published
	sync.Mutex
}

func (p *fakePublisher) Publish(topic, payload string, qos byte, retain bool) {
	p.Lock()
	defer p.Unlock()
	p.msgs = append(p.msgs, published{topic, payload})
}

type fakeChecker struct{ err error }

func (c fakeChecker) Check() error { return c.err }

func newTestBackend(t *testing.T, health Checker) (*WebBackend, *fakePublisher) {
	pub := &fakePublisher{}
	reg := entity.NewRegistry(entity.Config{Publisher: pub})
	_, err := reg.Upsert("bed", light.Config{
		Name:                   "Bed Lamp",
		CommandTopic:           "bed/set",
		BrightnessCommandTopic: "bed/bright",
		ColorTempCommandTopic:  "bed/ct",
	})
	require.NoError(t, err)
	b, err := New(Config{Logger: zap.NewNop().Sugar(), Lights: reg, Health: health})
	require.NoError(t, err)
	return b, pub
}

func do(b *WebBackend, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, r)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestListLights(t *testing.T) {
	b, _ := newTestBackend(t, nil)
	w, _ := do(b, http.MethodGet, "/api/lights", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reports []entity.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "light.bed_lamp", reports[0].EntityID)
	assert.Equal(t, entity.StateOff, reports[0].State)
}

func TestGetLight(t *testing.T) {
	b, _ := newTestBackend(t, nil)
	w, out := do(b, http.MethodGet, "/api/lights/light.bed_lamp", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "off", out["state"])

	w, out = do(b, http.MethodGet, "/api/lights/light.nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, out["error"], "light.nope")
}

func TestTurnOnOff(t *testing.T) {
	b, pub := newTestBackend(t, nil)
	w, out := do(b, http.MethodPost, "/api/lights/light.bed_lamp/turn_on", `{"brightness": 128, "kelvin": 4000}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "on", out["state"])
	attrs := out["attributes"].(map[string]any)
	assert.EqualValues(t, 128, attrs["brightness"])
	assert.EqualValues(t, 250, attrs["color_temp"])
	assert.Equal(t, []published{
		{"bed/bright", "128"},
		{"bed/ct", "250"},
		{"bed/set", "ON"},
	}, pub.msgs)

	w, out = do(b, http.MethodPost, "/api/lights/light.bed_lamp/turn_off", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "off", out["state"])
	assert.Equal(t, published{"bed/set", "OFF"}, pub.msgs[len(pub.msgs)-1])
}

func TestTurnOnWithoutBody(t *testing.T) {
	b, pub := newTestBackend(t, nil)
	w, out := do(b, http.MethodPost, "/api/lights/light.bed_lamp/turn_on", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "on", out["state"])
	assert.Equal(t, []published{{"bed/set", "ON"}}, pub.msgs)
}

func TestTurnOnRejectsInvalid(t *testing.T) {
	b, pub := newTestBackend(t, nil)
	for _, body := range []string{
		`{"brightness": 300}`,
		`{"rgb_color": [1, 2]}`,
		`{"xy_color": [0.5, 1.5]}`,
		`{"brightness": "full"}`,
	} {
		w, _ := do(b, http.MethodPost, "/api/lights/light.bed_lamp/turn_on", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, pub.msgs)
}

func TestHealth(t *testing.T) {
	b, _ := newTestBackend(t, fakeChecker{})
	w, out := do(b, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])

	b, _ = newTestBackend(t, fakeChecker{err: errors.New("not connected")})
	w, out = do(b, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not connected", out["error"])
}
