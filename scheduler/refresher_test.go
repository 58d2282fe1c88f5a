package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"floorwatch/models"
	"floorwatch/report"
	"floorwatch/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDiscoverer struct {
	calls atomic.Int32
}

func (f *fakeDiscoverer) DiscoverAll(ctx context.Context, trackers []*services.Tracker) []services.Outcome {
	f.calls.Add(1)
	out := make([]services.Outcome, 0, len(trackers))
	for _, t := range trackers {
		obs, _ := models.NewPriceObservation(decimal.NewFromInt(2643), models.TON, "2,643 TON", models.ViewCurrent, time.Now())
		out = append(out, services.Outcome{
			Tracker: t,
			Result:  &models.DiscoveryResult{ItemKey: t.Key, Title: t.Title, Current: obs},
		})
	}
	return out
}

func trackers() []*services.Tracker {
	return []*services.Tracker{{Key: "888-floor", Title: "Anonymous Numbers"}}
}

func TestRefresher_RefreshAll(t *testing.T) {
	d := &fakeDiscoverer{}
	r := NewRefresher("", d, trackers(), report.NewFormatter(), time.Second, false)

	r.RefreshAll()
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestRefresher_EmptyScheduleDisabled(t *testing.T) {
	d := &fakeDiscoverer{}
	r := NewRefresher("", d, trackers(), report.NewFormatter(), time.Second, true)

	require.NoError(t, r.Start())
	r.Stop()
	assert.Equal(t, int32(0), d.calls.Load())
}

func TestRefresher_InvalidSchedule(t *testing.T) {
	r := NewRefresher("every tuesday", &fakeDiscoverer{}, trackers(), report.NewFormatter(), time.Second, false)
	assert.Error(t, r.Start())
}

func TestRefresher_RunsOnSchedule(t *testing.T) {
	d := &fakeDiscoverer{}
	r := NewRefresher("@every 1s", d, trackers(), report.NewFormatter(), time.Second, true)

	require.NoError(t, r.Start())
	defer r.Stop()

	assert.Eventually(t, func() bool { return d.calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}
