// Package registry loads the static per-provider configuration into
// immutable descriptors and answers enablement queries for the rest of the
// integration layer.
package registry

import (
	"sort"

	"go.uber.org/zap"

	"github.com/creatorcommerce/backend/internal/domain/vendor"
	"github.com/creatorcommerce/backend/internal/infrastructure/config"
)

// requiredCredentials lists the credential fields a provider must supply
// before it is considered usable. A provider with its enabled flag set but
// any of these fields empty is silently disabled so that one misconfigured
// vendor never blocks the others.
var requiredCredentials = map[string][]string{
	"printful":       {"api_token"},
	"printify":       {"api_token", "shop_id"},
	"gelato":         {"api_key"},
	"cjdropshipping": {"email", "password"},
	"aliexpress":     {"app_key", "app_secret"},
	"easypost":       {"api_key"},
	"shippo":         {"api_token"},
	"shipengine":     {"api_key"},
	"ccbill":         {"account", "subaccount", "salt"},
	"coinbase":       {"api_key", "webhook_secret"},
	"btcpay":         {"api_key", "store_id", "webhook_secret"},
	"coinpayments":   {"public_key", "private_key", "ipn_secret"},
	"plisio":         {"api_key"},
}

// Registry holds the loaded provider descriptors. It is built once at
// startup, immutable afterwards, and safe for concurrent reads.
type Registry struct {
	descriptors map[string]*vendor.ProviderDescriptor
	enabled     map[string]bool
}

// New builds a registry from the raw provider configuration. Providers with
// an unknown kind are skipped with a warning; providers missing a required
// credential are loaded but reported as disabled.
func New(providers map[string]config.ProviderConfig, log *zap.Logger) *Registry {
	r := &Registry{
		descriptors: make(map[string]*vendor.ProviderDescriptor, len(providers)),
		enabled:     make(map[string]bool, len(providers)),
	}

	for id, pc := range providers {
		kind := vendor.Kind(pc.Kind)
		if !kind.IsValid() {
			log.Warn("Skipping provider with unknown kind",
				zap.String("provider", id),
				zap.String("kind", pc.Kind))
			continue
		}

		desc := &vendor.ProviderDescriptor{
			ID:                  id,
			Kind:                kind,
			Enabled:             pc.Enabled,
			Credentials:         pc.Credentials,
			SupportedCategories: pc.SupportedCategories,
			SupportedCountries:  pc.SupportedCountries,
			Priority:            pc.Priority,
			AvgProcessingDays:   pc.AvgProcessingDays,
			BaseURL:             pc.BaseURL,
			TimeoutSeconds:      pc.TimeoutSeconds,
		}
		r.descriptors[id] = desc

		enabled := pc.Enabled
		if enabled {
			if missing := missingCredentials(id, desc); len(missing) > 0 {
				log.Warn("Disabling provider with missing credentials",
					zap.String("provider", id),
					zap.Strings("missing", missing))
				enabled = false
			}
		}
		r.enabled[id] = enabled
	}

	return r
}

func missingCredentials(id string, desc *vendor.ProviderDescriptor) []string {
	var missing []string
	for _, field := range requiredCredentials[id] {
		if desc.Credential(field) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// IsEnabled returns true only if the provider's static flag is set AND all
// of its required credential fields are non-empty.
func (r *Registry) IsEnabled(id string) bool {
	return r.enabled[id]
}

// Descriptor returns the descriptor for the given provider id
func (r *Registry) Descriptor(id string) (*vendor.ProviderDescriptor, error) {
	desc, ok := r.descriptors[id]
	if !ok {
		return nil, vendor.ErrVendorNotConfigured
	}
	return desc, nil
}

// All returns every loaded descriptor, sorted by id for determinism
func (r *Registry) All() []*vendor.ProviderDescriptor {
	out := make([]*vendor.ProviderDescriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EnabledByKind returns the enabled descriptors of one provider family,
// sorted by descending priority, then id.
func (r *Registry) EnabledByKind(kinds ...vendor.Kind) []*vendor.ProviderDescriptor {
	want := make(map[vendor.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	var out []*vendor.ProviderDescriptor
	for id, d := range r.descriptors {
		if r.enabled[id] && want[d.Kind] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}
