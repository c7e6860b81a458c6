package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestObserveRunAndHandler(t *testing.T) {
	Register()
	Register()
	gin.SetMode(gin.TestMode)

	ObserveRun(nil, 3, 2)
	ObserveRun(errors.New("boom"), 0, 0)

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/metrics", gin.WrapH(Handler()))

	// 先请求一次，使 HTTP 指标出现在下一次抓取中
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`materialbridge_runs_total{status="ok"}`,
		`materialbridge_runs_total{status="error"}`,
		"materialbridge_shortages_total",
		`http_requests_total{method="GET",path="/metrics",status="200"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}
