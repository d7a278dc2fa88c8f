package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_DomainCounters(t *testing.T) {
	m := New("manager")

	m.Login("success")
	m.Login("success")
	m.Login("failed")
	m.SSOToken("issue", "granted")
	m.AccessCheck("denied")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SSOTokens.WithLabelValues("issue", "granted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessChecks.WithLabelValues("denied")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login("success")
		m.SSOToken("issue", "granted")
		m.AccessCheck("granted")
	})
}
