package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Records(t *testing.T) {
	req := require.New(t)
	metrics := NewMetrics()

	metrics.RecordMessageSent("text", true)
	metrics.RecordMessageSent("image", false)
	metrics.RecordDelivery(true)
	metrics.RecordDelivery(false)
	metrics.RecordDelivery(false)
	metrics.SubscriptionOpened()
	metrics.SubscriptionOpened()
	metrics.SubscriptionClosed()

	req.Equal(1.0, testutil.ToFloat64(metrics.MessagesSent.WithLabelValues("text")))
	req.Equal(1.0, testutil.ToFloat64(metrics.MessagesCensored))
	req.Equal(1.0, testutil.ToFloat64(metrics.EventsDelivered))
	req.Equal(2.0, testutil.ToFloat64(metrics.EventsDropped))
	req.Equal(1.0, testutil.ToFloat64(metrics.ActiveSubscriptions))
}

func TestMetrics_Nil_Is_Noop(t *testing.T) {
	var metrics *Metrics
	require.NotPanics(t, func() {
		metrics.RecordMessageSent("text", true)
		metrics.RecordDelivery(false)
		metrics.SubscriptionOpened()
		metrics.RecordProcess(1, 1)
	})
}

func TestMetrics_Handler_Exposes_Registry(t *testing.T) {
	req := require.New(t)
	metrics := NewMetrics()
	metrics.RecordMessageSent("text", false)

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	req.Equal(http.StatusOK, recorder.Code)
	req.Contains(recorder.Body.String(), "chat_messages_sent_total")
}
