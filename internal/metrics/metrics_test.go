package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveVerification(t *testing.T) {
	m := New()

	m.ObserveVerification("accepted")
	m.ObserveVerification("accepted")
	m.ObserveVerification("hardware_mismatch")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.verifications.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("hardware_mismatch")))
}

func TestSignerDegradedGauge(t *testing.T) {
	m := New()

	m.SetSignerDegraded(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signerDegraded))

	m.SetSignerDegraded(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.signerDegraded))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveVerification("expired")
	m.ObserveAdminAction("suspend")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ironlock_verifications_total{outcome="expired"} 1`)
	assert.Contains(t, string(body), `ironlock_admin_actions_total{action="suspend"} 1`)
	assert.Contains(t, string(body), "ironlock_signer_degraded 0")
}
