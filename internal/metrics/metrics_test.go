package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arn-sec/sentryd/internal/registry"
	"github.com/arn-sec/sentryd/internal/tailer"
)

// compile-time assertions that Metrics satisfies both consumer interfaces.
var (
	_ registry.Metrics = (*Metrics)(nil)
	_ tailer.Metrics   = (*Metrics)(nil)
)

func TestMetrics_HandlerServesRegisteredFamilies(t *testing.T) {
	m := New()
	m.HitObserved("sshd")
	m.Jailed()
	m.ActiveJails(3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "sentryd_hits_total")
	require.Contains(t, body, "sentryd_jails_total")
	require.Contains(t, body, "sentryd_active_jails 3")
}
