package pprofserver

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teapot() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestAuthOrLocalOnly(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		remoteAddr string
		auth       string
		want       int
	}{
		{name: "loopback without auth", remoteAddr: "127.0.0.1:12345", want: http.StatusTeapot},
		{name: "ipv6 loopback", remoteAddr: "[::1]:12345", want: http.StatusTeapot},
		{name: "remote without configured creds", remoteAddr: "8.8.8.8:5444", auth: basic("u", "p"), want: http.StatusUnauthorized},
		{name: "remote wrong password", cfg: Config{User: "u", Pass: "p"}, remoteAddr: "8.8.8.8:5444", auth: basic("u", "WRONG"), want: http.StatusUnauthorized},
		{name: "remote missing header", cfg: Config{User: "u", Pass: "p"}, remoteAddr: "8.8.8.8:5444", want: http.StatusUnauthorized},
		{name: "remote correct creds", cfg: Config{User: "u", Pass: "p"}, remoteAddr: "8.8.8.8:5444", auth: basic("u", "p"), want: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := authOrLocalOnly(teapot(), tt.cfg)
			req := httptest.NewRequest(http.MethodGet, "http://example/debug/pprof/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestNewServer_DisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, NewServer(Config{}))
	assert.Nil(t, NewServer(Config{Addr: "  "}))
}

func TestNewServer_ServesProfilerIndex(t *testing.T) {
	srv := NewServer(Config{Addr: "127.0.0.1:6060"})
	require.NotNil(t, srv)
	assert.Equal(t, "127.0.0.1:6060", srv.Addr)

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "goroutine")
}
