package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) PingContext(ctx context.Context) error { return p.err }

type fakeProber struct {
	loaded bool
}

func (p *fakeProber) Probe(ctx context.Context) bool { return p.loaded }

func newHealthRouter(db Pinger, model ModelProber) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health/", NewHealthHandler(db, model, zap.NewNop()).Health)
	return router
}

type healthPayload struct {
	Success bool `json:"success"`
	Health  struct {
		Status         string            `json:"status"`
		Checks         map[string]string `json:"checks"`
		ResponseTimeMs int64             `json:"response_time_ms"`
		Timestamp      string            `json:"timestamp"`
	} `json:"health"`
}

func getHealth(t *testing.T, router *gin.Engine) (*httptest.ResponseRecorder, healthPayload) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/health/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var payload healthPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad health payload: %v", err)
	}
	return rr, payload
}

func TestHealth_OK(t *testing.T) {
	router := newHealthRouter(&fakePinger{}, &fakeProber{loaded: true})

	rr, payload := getHealth(t, router)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if payload.Health.Status != "ok" {
		t.Errorf("health status = %q, want ok", payload.Health.Status)
	}
	want := map[string]string{"app": "running", "db": "connected", "model": "loaded"}
	for k, v := range want {
		if payload.Health.Checks[k] != v {
			t.Errorf("check %q = %q, want %q", k, payload.Health.Checks[k], v)
		}
	}
	if payload.Health.ResponseTimeMs < 0 {
		t.Errorf("response time %d ms is negative", payload.Health.ResponseTimeMs)
	}
}

func TestHealth_Degraded(t *testing.T) {
	tests := []struct {
		name      string
		db        *fakePinger
		model     *fakeProber
		wantCheck string
		wantValue string
	}{
		{"db down", &fakePinger{err: context.DeadlineExceeded}, &fakeProber{loaded: true}, "db", "error"},
		{"model not loaded", &fakePinger{}, &fakeProber{loaded: false}, "model", "not loaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newHealthRouter(tt.db, tt.model)
			rr, payload := getHealth(t, router)

			if rr.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", rr.Code)
			}
			if payload.Health.Status != "degraded" {
				t.Errorf("health status = %q, want degraded", payload.Health.Status)
			}
			if payload.Health.Checks[tt.wantCheck] != tt.wantValue {
				t.Errorf("check %q = %q, want %q", tt.wantCheck, payload.Health.Checks[tt.wantCheck], tt.wantValue)
			}
		})
	}
}
