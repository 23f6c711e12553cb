package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestObserveGateway(t *testing.T) {
	okBefore := testutil.ToFloat64(GatewayRequestsTotal.WithLabelValues("social_post", "ok"))
	errBefore := testutil.ToFloat64(GatewayRequestsTotal.WithLabelValues("social_post", "error"))

	ObserveGateway("social_post", time.Now(), nil)
	ObserveGateway("social_post", time.Now(), errors.New("boom"))
	ObserveGateway("social_post", time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(GatewayRequestsTotal.WithLabelValues("social_post", "ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(GatewayRequestsTotal.WithLabelValues("social_post", "error")))
}
