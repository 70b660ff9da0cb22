// Package velocity builds the per-request risk context from the counter
// store and the consortium.
package velocity

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/Timiochukwu/sentinel/internal/consortium"
	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Hosting and VPN egress ranges observed in abuse traffic. Coarse on
// purpose; a reputation feed can replace this list without touching rules.
var suspectCIDRs = mustParseCIDRs(
	"104.16.0.0/13",  // large CDN/proxy egress
	"45.8.0.0/16",    // hosting
	"185.220.100.0/22", // known exit relays
	"193.29.104.0/22",
	"91.219.236.0/22",
)

func mustParseCIDRs(blocks ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(blocks))
	for _, b := range blocks {
		_, n, err := net.ParseCIDR(b)
		if err != nil {
			panic("bad builtin CIDR: " + b)
		}
		nets = append(nets, n)
	}
	return nets
}

// Aggregator assembles a RiskContext for one transaction. Lookups run
// concurrently under a soft time budget; a failed lookup degrades its signal
// to the zero value and is named in Degraded rather than failing the check.
type Aggregator struct {
	counters   domain.CounterStore
	consortium *consortium.Service
	budget     time.Duration
	logger     *slog.Logger
}

// NewAggregator creates a context aggregator.
func NewAggregator(counters domain.CounterStore, cons *consortium.Service, budget time.Duration, logger *slog.Logger) *Aggregator {
	if budget <= 0 {
		budget = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		counters:   counters,
		consortium: cons,
		budget:     budget,
		logger:     logger,
	}
}

// Build records the transaction's event and gathers all window counts,
// device fan-out, last location, VPN suspicion, and consortium intelligence.
// The returned context is complete even when collaborators fail; check
// Degraded for what is missing.
func (a *Aggregator) Build(ctx context.Context, tx *domain.Transaction, hashes []string) *domain.RiskContext {
	ctx, cancel := context.WithTimeout(ctx, a.budget)
	defer cancel()

	rc := &domain.RiskContext{
		VPNSuspected: a.vpnSuspected(tx.Enrichment.IPAddress),
	}

	var mu sync.Mutex
	degrade := func(name string, err error) {
		a.logger.Warn("context lookup degraded", "lookup", name, "tenant_id", tx.TenantID, "error", err)
		mu.Lock()
		rc.Degraded = append(rc.Degraded, name)
		mu.Unlock()
	}

	// The event must land before the counts so this transaction is included
	// in its own windows.
	if err := a.counters.RecordEvent(ctx, tx.TenantID, tx.UserID, tx.Timestamp); err != nil {
		degrade("record_event", err)
	}

	var wg sync.WaitGroup

	windows := []struct {
		d    time.Duration
		dest *int64
		name string
	}{
		{time.Minute, &rc.Count1m, "count_1m"},
		{10 * time.Minute, &rc.Count10m, "count_10m"},
		{time.Hour, &rc.Count1h, "count_1h"},
		{24 * time.Hour, &rc.Count24h, "count_24h"},
	}
	for _, w := range windows {
		wg.Add(1)
		go func(d time.Duration, dest *int64, name string) {
			defer wg.Done()
			n, err := a.counters.CountWindow(ctx, tx.TenantID, tx.UserID, d)
			if err != nil {
				degrade(name, err)
				return
			}
			*dest = n
		}(w.d, w.dest, w.name)
	}

	if fp := tx.Enrichment.DeviceFingerprint; fp != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := a.counters.TouchDevice(ctx, tx.TenantID, fp, tx.UserID)
			if err != nil {
				degrade("device_fanout", err)
				return
			}
			rc.DeviceUserCount = n
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		last, err := a.counters.GetLastLocation(ctx, tx.TenantID, tx.UserID)
		if err != nil {
			degrade("last_location", err)
			return
		}
		if last != nil {
			rc.LastLocation = last
			rc.Elapsed = tx.Timestamp.Sub(last.SeenAt)
		}
	}()

	if a.consortium != nil && a.consortium.Enabled() && len(hashes) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := a.consortium.Lookup(ctx, hashes)
			if err != nil {
				degrade("consortium", err)
				return
			}
			count, sample, err := a.consortium.ScanStacking(ctx, tx.TenantID, hashes)
			if err != nil {
				degrade("stacking_scan", err)
			} else {
				summary.StackingTenants = count
				summary.StackingSample = sample
			}
			rc.Consortium = summary
		}()
	}

	wg.Wait()

	// Persist the current location after the read so the elapsed comparison
	// used the previous sighting.
	if tx.HasCoordinates() {
		loc := domain.Location{
			Latitude:  *tx.Enrichment.Latitude,
			Longitude: *tx.Enrichment.Longitude,
			SeenAt:    tx.Timestamp,
		}
		if err := a.counters.SetLastLocation(context.WithoutCancel(ctx), tx.TenantID, tx.UserID, loc); err != nil {
			degrade("set_location", err)
		}
	}

	return rc
}

func (a *Aggregator) vpnSuspected(raw string) bool {
	if raw == "" {
		return false
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	for _, n := range suspectCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
