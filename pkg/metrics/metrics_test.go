package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.SyncRuns.WithLabelValues("Under 21 M", "changed").Inc()
	m.SyncRuns.WithLabelValues("Under 21 M", "changed").Inc()
	m.NotificationsSuppressed.WithLabelValues("dedup").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncRuns.WithLabelValues("Under 21 M", "changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSuppressed.WithLabelValues("dedup")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.NotificationsDelivered.WithLabelValues("sent").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `leaguesync_notifications_delivered_total{status="sent"} 1`))
}
