package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNew(t *testing.T) {
	tests := []struct {
		page, limit int
		want        Params
	}{
		{0, 0, Params{Page: 1, Limit: 20, Offset: 0}},
		{3, 10, Params{Page: 3, Limit: 10, Offset: 20}},
		{-1, 500, Params{Page: 1, Limit: 100, Offset: 0}},
	}
	for _, tt := range tests {
		if got := New(tt.page, tt.limit); got != tt.want {
			t.Errorf("New(%d, %d) = %+v, want %+v", tt.page, tt.limit, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/withdrawals?page=2&limit=abc", nil)

	if got := Parse(c); got != (Params{Page: 2, Limit: 20, Offset: 20}) {
		t.Errorf("Parse = %+v", got)
	}
}
