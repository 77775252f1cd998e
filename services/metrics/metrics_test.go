package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_newsletter(t *testing.T) {
	m := New()
	m.Delivered("example.com")
	m.Delivered("example.com")
	m.Failed("example.com")
	m.Delivered("other.com")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.newsletterSent.WithLabelValues("example.com")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.newsletterSent.WithLabelValues("other.com")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.newsletterFailed.WithLabelValues("example.com")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/v1/news/articles/:slug", http.StatusOK, 25*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `habari_http_request_duration_seconds_count{code="200",method="GET",route="/v1/news/articles/:slug"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
