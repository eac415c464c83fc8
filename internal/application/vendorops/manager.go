// Package vendorops orchestrates multi-provider operations: catalog
// search, order routing, shipping-rate aggregation and health checks. All
// fan-out is bounded by a per-provider timeout and failures are isolated
// so one slow or broken provider never takes down the others.
package vendorops

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
	"github.com/creatorcommerce/backend/internal/infrastructure/registry"
)

// defaultProviderTimeout bounds each provider call during fan-out
const defaultProviderTimeout = 12 * time.Second

// Manager routes operations across the enabled vendor adapters and
// shipping-rate providers.
type Manager struct {
	registry        *registry.Registry
	adapters        map[string]vendor.Adapter
	rateProviders   map[string]shipping.RateProvider
	providerTimeout time.Duration
	defaultDropship string
	log             *zap.Logger
}

// Options configures a Manager
type Options struct {
	// ProviderTimeout bounds each provider call; zero selects the default
	ProviderTimeout time.Duration
	// DefaultDropshipVendor receives orders no POD vendor can take
	DefaultDropshipVendor string
}

// NewManager creates a manager over the given adapters and rate providers.
// Adapters whose provider is not enabled in the registry are held but
// never called.
func NewManager(reg *registry.Registry, adapters []vendor.Adapter, rateProviders []shipping.RateProvider, opts Options, log *zap.Logger) *Manager {
	m := &Manager{
		registry:        reg,
		adapters:        make(map[string]vendor.Adapter, len(adapters)),
		rateProviders:   make(map[string]shipping.RateProvider, len(rateProviders)),
		providerTimeout: opts.ProviderTimeout,
		defaultDropship: opts.DefaultDropshipVendor,
		log:             log,
	}
	if m.providerTimeout <= 0 {
		m.providerTimeout = defaultProviderTimeout
	}
	for _, a := range adapters {
		m.adapters[a.VendorID()] = a
	}
	for _, p := range rateProviders {
		m.rateProviders[p.ProviderID()] = p
	}
	return m
}

// ---------------------------------------------------------------------------
// Catalog search
// ---------------------------------------------------------------------------

// SearchResult is one vendor's slice of a fan-out search
type SearchResult struct {
	VendorID string
	Products []vendor.NormalizedProduct
	Err      error
}

// SearchProducts queries catalog vendors concurrently and returns
// per-vendor results. An empty vendorIDs fans out to every enabled
// catalog vendor; a non-empty one restricts the fan-out to those vendors,
// and a requested vendor that is unknown or disabled contributes an error
// result instead of being silently ignored. A failing vendor contributes
// its error, not an empty success, and never aborts the others.
func (m *Manager) SearchProducts(ctx context.Context, filter vendor.CatalogFilter, vendorIDs []string) []SearchResult {
	adapters, results := m.selectSearchAdapters(vendorIDs)

	offset := len(results)
	results = append(results, make([]SearchResult, len(adapters))...)
	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, a vendor.Adapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, m.providerTimeout)
			defer cancel()

			products, err := a.ListCatalog(callCtx, filter)
			if err != nil {
				m.log.Warn("catalog search failed",
					zap.String("vendor", a.VendorID()),
					zap.Error(err))
			}
			results[offset+i] = SearchResult{VendorID: a.VendorID(), Products: products, Err: err}
		}(i, adapter)
	}
	wg.Wait()
	return results
}

// selectSearchAdapters resolves the search fan-out set. When a subset is
// requested, vendors that cannot be queried come back as ready-made error
// results.
func (m *Manager) selectSearchAdapters(vendorIDs []string) ([]vendor.Adapter, []SearchResult) {
	enabled := m.enabledAdapters(vendor.KindPOD, vendor.KindDropship)
	if len(vendorIDs) == 0 {
		return enabled, nil
	}

	byID := make(map[string]vendor.Adapter, len(enabled))
	for _, a := range enabled {
		byID[a.VendorID()] = a
	}

	var selected []vendor.Adapter
	var failed []SearchResult
	for _, id := range vendorIDs {
		if adapter, ok := byID[id]; ok {
			selected = append(selected, adapter)
			continue
		}
		err := vendor.ErrVendorNotConfigured
		if _, configured := m.adapters[id]; configured {
			err = vendor.ErrVendorNotEnabled
		}
		failed = append(failed, SearchResult{VendorID: id, Err: err})
	}
	return selected, failed
}

// ---------------------------------------------------------------------------
// Order routing
// ---------------------------------------------------------------------------

// SelectBestVendor picks the vendor for an order. A preferred vendor wins
// when it is enabled; otherwise POD items route to the highest-priority
// enabled POD vendor and everything else to the default dropship vendor.
func (m *Manager) SelectBestVendor(req *vendor.OrderRequest) (vendor.Adapter, error) {
	if req.PreferredVendor != "" {
		adapter, ok := m.adapters[req.PreferredVendor]
		if !ok || !m.registry.IsEnabled(req.PreferredVendor) {
			return nil, vendor.ErrVendorNotEnabled
		}
		return adapter, nil
	}

	if req.HasPODItem() {
		for _, desc := range m.registry.EnabledByKind(vendor.KindPOD) {
			if adapter, ok := m.adapters[desc.ID]; ok {
				return adapter, nil
			}
		}
		// No POD vendor available; fall through to dropship.
	}

	if m.defaultDropship != "" && m.registry.IsEnabled(m.defaultDropship) {
		if adapter, ok := m.adapters[m.defaultDropship]; ok {
			return adapter, nil
		}
	}
	return nil, vendor.ErrNoEligibleVendor
}

// CreateOrder validates, routes and places the order with one vendor
func (m *Manager) CreateOrder(ctx context.Context, req *vendor.OrderRequest) (*vendor.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adapter, err := m.SelectBestVendor(req)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, m.providerTimeout)
	defer cancel()

	result, err := adapter.CreateOrder(callCtx, req)
	if err != nil {
		m.log.Warn("order placement failed",
			zap.String("vendor", adapter.VendorID()),
			zap.String("reference", req.Reference),
			zap.Error(err))
		return nil, err
	}

	m.log.Info("order placed",
		zap.String("vendor", result.VendorID),
		zap.String("external_order_id", result.ExternalOrderID),
		zap.String("reference", req.Reference))
	return result, nil
}

// GetOrderStatus reads an order's status back from its vendor
func (m *Manager) GetOrderStatus(ctx context.Context, vendorID, externalOrderID string) (vendor.OrderStatus, error) {
	adapter, ok := m.adapters[vendorID]
	if !ok {
		return "", vendor.ErrVendorNotConfigured
	}
	if !m.registry.IsEnabled(vendorID) {
		return "", vendor.ErrVendorNotEnabled
	}

	callCtx, cancel := context.WithTimeout(ctx, m.providerTimeout)
	defer cancel()
	return adapter.GetOrderStatus(callCtx, externalOrderID)
}

// ---------------------------------------------------------------------------
// Shipping rates
// ---------------------------------------------------------------------------

// RateResult is one provider's slice of a rate fan-out
type RateResult struct {
	ProviderID string
	Quotes     []shipping.RateQuote
	Err        error
}

// GetShippingRates quotes every enabled rate provider concurrently and
// returns per-provider results. A failing provider contributes its error,
// not an empty success, and never aborts the others.
func (m *Manager) GetShippingRates(ctx context.Context, from, to shipping.Address, parcel shipping.Parcel) []RateResult {
	providers := m.enabledRateProviders()

	results := make([]RateResult, len(providers))
	var wg sync.WaitGroup
	for i, provider := range providers {
		wg.Add(1)
		go func(i int, p shipping.RateProvider) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, m.providerTimeout)
			defer cancel()

			quotes, err := p.GetRates(callCtx, from, to, parcel)
			if err != nil {
				m.log.Warn("rate provider failed",
					zap.String("provider", p.ProviderID()),
					zap.Error(err))
			}
			results[i] = RateResult{ProviderID: p.ProviderID(), Quotes: quotes, Err: err}
		}(i, provider)
	}
	wg.Wait()
	return results
}

// GetCheapestRate quotes all providers and selects the lowest surviving
// rate, optionally restricted to the given carriers and services. It fails
// with ErrNoRates when no provider returned a quote.
func (m *Manager) GetCheapestRate(ctx context.Context, from, to shipping.Address, parcel shipping.Parcel, carriers, services []string) (*shipping.RateQuote, error) {
	var merged []shipping.RateQuote
	for _, result := range m.GetShippingRates(ctx, from, to, parcel) {
		merged = append(merged, result.Quotes...)
	}
	if len(merged) == 0 {
		return nil, shipping.ErrNoRates
	}
	return shipping.LowestRate(merged, carriers, services)
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// HealthCheck pings every configured vendor concurrently. Disabled vendors
// report disabled without a call; vendors without a cheap probe report
// configured.
func (m *Manager) HealthCheck(ctx context.Context) []vendor.HealthStatus {
	descriptors := m.registry.All()

	statuses := make([]vendor.HealthStatus, len(descriptors))
	var wg sync.WaitGroup
	for i, desc := range descriptors {
		wg.Add(1)
		go func(i int, desc *vendor.ProviderDescriptor) {
			defer wg.Done()
			statuses[i] = m.checkOne(ctx, desc)
		}(i, desc)
	}
	wg.Wait()
	return statuses
}

func (m *Manager) checkOne(ctx context.Context, desc *vendor.ProviderDescriptor) vendor.HealthStatus {
	status := vendor.HealthStatus{ProviderID: desc.ID, Kind: desc.Kind}

	if !m.registry.IsEnabled(desc.ID) {
		status.State = vendor.HealthStateDisabled
		return status
	}
	adapter, ok := m.adapters[desc.ID]
	if !ok {
		// Enabled but not a pingable adapter (rate providers, processors).
		status.State = vendor.HealthStateConfigured
		return status
	}

	callCtx, cancel := context.WithTimeout(ctx, m.providerTimeout)
	defer cancel()

	switch err := adapter.Ping(callCtx); {
	case err == nil:
		status.State = vendor.HealthStateOK
	case errors.Is(err, vendor.ErrUnsupportedOperation):
		status.State = vendor.HealthStateConfigured
	default:
		status.State = vendor.HealthStateError
		status.Message = err.Error()
	}
	return status
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (m *Manager) enabledAdapters(kinds ...vendor.Kind) []vendor.Adapter {
	var out []vendor.Adapter
	for _, kind := range kinds {
		for _, desc := range m.registry.EnabledByKind(kind) {
			if adapter, ok := m.adapters[desc.ID]; ok {
				out = append(out, adapter)
			}
		}
	}
	return out
}

func (m *Manager) enabledRateProviders() []shipping.RateProvider {
	var out []shipping.RateProvider
	for _, desc := range m.registry.EnabledByKind(vendor.KindShipping) {
		if provider, ok := m.rateProviders[desc.ID]; ok {
			out = append(out, provider)
		}
	}
	return out
}
