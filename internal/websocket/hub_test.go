package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var testSecret = []byte("ws-secret")

func newTestServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, testSecret, "agent") })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func wsToken(t *testing.T, sub, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestServeWs_DeliversToUser(t *testing.T) {
	hub, url := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+wsToken(t, "agent-1", "agent"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections("agent-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.SendToUser("agent-2", []byte("not for you"))
	hub.SendToUser("agent-1", []byte(`{"type":"phase_released"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != `{"type":"phase_released"}` {
		t.Errorf("message = %s", msg)
	}
}

func TestServeWs_Rejects(t *testing.T) {
	_, url := newTestServer(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "?token=abc", http.StatusUnauthorized},
		{"wrong role", "?token=" + wsToken(t, "admin-1", "admin"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(url+tt.query, nil)
			if err == nil {
				t.Fatal("dial succeeded")
			}
			if resp == nil || resp.StatusCode != tt.want {
				t.Errorf("response = %v, want status %d", resp, tt.want)
			}
		})
	}
}

func TestRoleAllowed(t *testing.T) {
	if !roleAllowed("admin", []string{"agent", "admin"}) {
		t.Error("admin not allowed")
	}
	if roleAllowed("", []string{"agent"}) {
		t.Error("empty role allowed")
	}
}
