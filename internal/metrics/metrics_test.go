package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackTicketsGenerated(t *testing.T) {
	before := testutil.ToFloat64(ticketsGenerated)

	TrackTicketsGenerated(200)

	assert.Equal(t, before+200, testutil.ToFloat64(ticketsGenerated))
}

func TestTrackBillingInconsistency(t *testing.T) {
	c := billingInconsistencies.WithLabelValues("event")
	before := testutil.ToFloat64(c)

	TrackBillingInconsistency("event")

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestTrackBillingCall_SplitsByOutcome(t *testing.T) {
	TrackBillingCall("create_event", time.Millisecond, nil)
	TrackBillingCall("create_event", time.Millisecond, errors.New("down"))

	assert.Equal(t, 2, testutil.CollectAndCount(billingDuration, "tixhub_billing_request_duration_seconds"))
}
