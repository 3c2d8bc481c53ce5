package telegraph_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/telegraph-go/telegraph"
)

func TestRootPackageAPI(t *testing.T) {
	s := telegraph.New(nil)
	s.GET("/hello/:name", func(req *telegraph.Request) *telegraph.Response {
		return telegraph.Text(http.StatusOK, "hello "+req.Param("name"))
	})

	req := httptest.NewRequest("GET", "/hello/world", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello world" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "hello world")
	}
}

func TestMessageConstructors(t *testing.T) {
	text := telegraph.NewTextMessage("hi")
	if text.Type != telegraph.TextMessage || !text.IsText() {
		t.Errorf("NewTextMessage type = %v, want TextMessage", text.Type)
	}
	data := telegraph.NewDataMessage([]byte{1, 2})
	if data.Type != telegraph.DataMessage || data.IsText() {
		t.Errorf("NewDataMessage type = %v, want DataMessage", data.Type)
	}
}
