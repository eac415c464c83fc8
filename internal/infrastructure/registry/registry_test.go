package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/creatorcommerce/backend/internal/domain/vendor"
	"github.com/creatorcommerce/backend/internal/infrastructure/config"
)

func TestRegistry_IsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		provider config.ProviderConfig
		id       string
		want     bool
	}{
		{
			name: "enabled with all credentials",
			id:   "printful",
			provider: config.ProviderConfig{
				Kind:        "pod",
				Enabled:     true,
				Credentials: map[string]string{"api_token": "tok"},
			},
			want: true,
		},
		{
			name: "enabled flag but missing credential",
			id:   "printful",
			provider: config.ProviderConfig{
				Kind:    "pod",
				Enabled: true,
			},
			want: false,
		},
		{
			name: "enabled flag but empty credential value",
			id:   "cjdropshipping",
			provider: config.ProviderConfig{
				Kind:        "dropship",
				Enabled:     true,
				Credentials: map[string]string{"email": "a@b.c", "password": ""},
			},
			want: false,
		},
		{
			name: "disabled flag with full credentials",
			id:   "printful",
			provider: config.ProviderConfig{
				Kind:        "pod",
				Enabled:     false,
				Credentials: map[string]string{"api_token": "tok"},
			},
			want: false,
		},
		{
			name: "partial multi-field credentials",
			id:   "ccbill",
			provider: config.ProviderConfig{
				Kind:        "payment",
				Enabled:     true,
				Credentials: map[string]string{"account": "900000", "subaccount": "0000"},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(map[string]config.ProviderConfig{tt.id: tt.provider}, zap.NewNop())
			assert.Equal(t, tt.want, r.IsEnabled(tt.id))
		})
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := New(nil, zap.NewNop())
	assert.False(t, r.IsEnabled("nope"))

	_, err := r.Descriptor("nope")
	assert.ErrorIs(t, err, vendor.ErrVendorNotConfigured)
}

func TestRegistry_SkipsUnknownKind(t *testing.T) {
	r := New(map[string]config.ProviderConfig{
		"weird": {Kind: "telepathy", Enabled: true},
	}, zap.NewNop())

	assert.Empty(t, r.All())
	assert.False(t, r.IsEnabled("weird"))
}

func TestRegistry_EnabledByKind(t *testing.T) {
	r := New(map[string]config.ProviderConfig{
		"printful": {
			Kind: "pod", Enabled: true, Priority: 5,
			Credentials: map[string]string{"api_token": "a"},
		},
		"printify": {
			Kind: "pod", Enabled: true, Priority: 9,
			Credentials: map[string]string{"api_token": "b", "shop_id": "1"},
		},
		"gelato": {
			Kind: "pod", Enabled: false,
			Credentials: map[string]string{"api_key": "c"},
		},
		"cjdropshipping": {
			Kind: "dropship", Enabled: true, Priority: 1,
			Credentials: map[string]string{"email": "a@b.c", "password": "p"},
		},
	}, zap.NewNop())

	pods := r.EnabledByKind(vendor.KindPOD)
	require.Len(t, pods, 2)
	// Sorted by descending priority.
	assert.Equal(t, "printify", pods[0].ID)
	assert.Equal(t, "printful", pods[1].ID)

	both := r.EnabledByKind(vendor.KindPOD, vendor.KindDropship)
	assert.Len(t, both, 3)
}

func TestRegistry_DescriptorImmutableFields(t *testing.T) {
	r := New(map[string]config.ProviderConfig{
		"printful": {
			Kind: "pod", Enabled: true, Priority: 3, AvgProcessingDays: 4,
			SupportedCountries:  []string{"US", "CA"},
			SupportedCategories: []string{"apparel"},
			Credentials:         map[string]string{"api_token": "tok"},
		},
	}, zap.NewNop())

	desc, err := r.Descriptor("printful")
	require.NoError(t, err)
	assert.Equal(t, vendor.KindPOD, desc.Kind)
	assert.Equal(t, 3, desc.Priority)
	assert.Equal(t, 4, desc.AvgProcessingDays)
	assert.True(t, desc.SupportsCountry("US"))
	assert.False(t, desc.SupportsCountry("DE"))
	assert.True(t, desc.SupportsCategory("apparel"))
	assert.Equal(t, "tok", desc.Credential("api_token"))
	assert.Equal(t, "", desc.Credential("missing"))
}
