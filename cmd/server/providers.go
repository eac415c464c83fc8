package main

import (
	"go.uber.org/zap"

	paymentdomain "github.com/creatorcommerce/backend/internal/domain/payment"
	"github.com/creatorcommerce/backend/internal/domain/shipping"
	"github.com/creatorcommerce/backend/internal/domain/vendor"
	"github.com/creatorcommerce/backend/internal/infrastructure/dropship"
	"github.com/creatorcommerce/backend/internal/infrastructure/payment"
	"github.com/creatorcommerce/backend/internal/infrastructure/registry"
	"github.com/creatorcommerce/backend/internal/infrastructure/shiprate"
	"github.com/creatorcommerce/backend/internal/infrastructure/webhook"
)

// buildAdapters constructs one adapter per enabled POD/dropship provider.
// A provider whose credentials fail adapter validation is logged and
// skipped; it will show up as configured-but-unreachable in health checks.
func buildAdapters(reg *registry.Registry, log *zap.Logger) []vendor.Adapter {
	var adapters []vendor.Adapter
	for _, desc := range reg.EnabledByKind(vendor.KindPOD, vendor.KindDropship) {
		adapter, err := newAdapter(desc)
		if err != nil {
			log.Warn("Skipping vendor adapter",
				zap.String("provider", desc.ID),
				zap.Error(err))
			continue
		}
		adapters = append(adapters, adapter)
		log.Info("Vendor adapter ready",
			zap.String("provider", desc.ID),
			zap.String("kind", desc.Kind.String()))
	}
	return adapters
}

func newAdapter(desc *vendor.ProviderDescriptor) (vendor.Adapter, error) {
	switch desc.ID {
	case "printful":
		return dropship.NewPrintfulAdapter(&dropship.PrintfulConfig{
			APIToken:       desc.Credential("api_token"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "printify":
		return dropship.NewPrintifyAdapter(&dropship.PrintifyConfig{
			APIToken:       desc.Credential("api_token"),
			ShopID:         desc.Credential("shop_id"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "gelato":
		return dropship.NewGelatoAdapter(&dropship.GelatoConfig{
			APIKey:         desc.Credential("api_key"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "cjdropshipping":
		return dropship.NewCJAdapter(&dropship.CJConfig{
			Email:          desc.Credential("email"),
			Password:       desc.Credential("password"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "aliexpress":
		return dropship.NewAliExpressAdapter(&dropship.AliExpressConfig{
			AppKey:         desc.Credential("app_key"),
			AppSecret:      desc.Credential("app_secret"),
			SessionKey:     desc.Credential("session_key"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	default:
		return nil, vendor.ErrVendorNotConfigured
	}
}

// buildRateProviders constructs one provider per enabled shipping-rate
// aggregator.
func buildRateProviders(reg *registry.Registry, log *zap.Logger) []shipping.RateProvider {
	var providers []shipping.RateProvider
	for _, desc := range reg.EnabledByKind(vendor.KindShipping) {
		provider, err := newRateProvider(desc)
		if err != nil {
			log.Warn("Skipping rate provider",
				zap.String("provider", desc.ID),
				zap.Error(err))
			continue
		}
		providers = append(providers, provider)
		log.Info("Rate provider ready", zap.String("provider", desc.ID))
	}
	return providers
}

func newRateProvider(desc *vendor.ProviderDescriptor) (shipping.RateProvider, error) {
	switch desc.ID {
	case "easypost":
		return shiprate.NewEasyPostProvider(&shiprate.EasyPostConfig{
			APIKey:         desc.Credential("api_key"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "shippo":
		return shiprate.NewShippoProvider(&shiprate.ShippoConfig{
			APIToken:       desc.Credential("api_token"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "shipengine":
		return shiprate.NewShipEngineProvider(&shiprate.ShipEngineConfig{
			APIKey:         desc.Credential("api_key"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	default:
		return nil, shipping.ErrProviderNotConfigured
	}
}

// buildCCBill constructs the CCBill processor when the provider is enabled,
// nil otherwise.
func buildCCBill(reg *registry.Registry, log *zap.Logger) *payment.CCBillProcessor {
	if !reg.IsEnabled("ccbill") {
		return nil
	}
	desc, err := reg.Descriptor("ccbill")
	if err != nil {
		return nil
	}
	processor, err := payment.NewCCBillProcessor(&payment.CCBillConfig{
		Account:        desc.Credential("account"),
		Subaccount:     desc.Credential("subaccount"),
		Salt:           desc.Credential("salt"),
		FlexFormID:     desc.Credential("flexform_id"),
		Username:       desc.Credential("username"),
		Password:       desc.Credential("password"),
		TimeoutSeconds: desc.TimeoutSeconds,
	})
	if err != nil {
		log.Warn("Skipping ccbill processor", zap.Error(err))
		return nil
	}
	log.Info("Payment processor ready", zap.String("provider", "ccbill"))
	return processor
}

// buildCryptoManager constructs the dispatch manager and registers every
// enabled crypto processor with it.
func buildCryptoManager(reg *registry.Registry, log *zap.Logger) *payment.CryptoPaymentManager {
	manager := payment.NewCryptoPaymentManager(log)
	for _, desc := range reg.EnabledByKind(vendor.KindCrypto) {
		processor, err := newCryptoProcessor(desc)
		if err != nil {
			log.Warn("Skipping crypto processor",
				zap.String("provider", desc.ID),
				zap.Error(err))
			continue
		}
		manager.Register(processor)
		log.Info("Crypto processor ready", zap.String("provider", desc.ID))
	}
	return manager
}

func newCryptoProcessor(desc *vendor.ProviderDescriptor) (paymentdomain.CryptoProcessor, error) {
	switch desc.ID {
	case "coinbase":
		return payment.NewCoinbaseProcessor(&payment.CoinbaseConfig{
			APIKey:         desc.Credential("api_key"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "btcpay":
		return payment.NewBTCPayProcessor(&payment.BTCPayConfig{
			APIKey:         desc.Credential("api_key"),
			StoreID:        desc.Credential("store_id"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "coinpayments":
		return payment.NewCoinPaymentsProcessor(&payment.CoinPaymentsConfig{
			PublicKey:      desc.Credential("public_key"),
			PrivateKey:     desc.Credential("private_key"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	case "plisio":
		return payment.NewPlisioProcessor(&payment.PlisioConfig{
			APIKey:         desc.Credential("api_key"),
			APIBaseURL:     desc.BaseURL,
			TimeoutSeconds: desc.TimeoutSeconds,
		})
	default:
		return nil, paymentdomain.ErrProcessorNotConfigured
	}
}

// webhookSecretFields maps each webhook-capable provider to the credential
// field its verification scheme keys on.
var webhookSecretFields = map[string]string{
	"coinbase":     "webhook_secret",
	"btcpay":       "webhook_secret",
	"coinpayments": "ipn_secret",
	"plisio":       "api_key",
	"ccbill":       "salt",
}

// buildWebhookVerifier collects the verification secret of every enabled
// webhook-capable provider.
func buildWebhookVerifier(reg *registry.Registry, log *zap.Logger) *webhook.Verifier {
	secrets := make(map[string]string)
	for id, field := range webhookSecretFields {
		if !reg.IsEnabled(id) {
			continue
		}
		desc, err := reg.Descriptor(id)
		if err != nil {
			continue
		}
		if secret := desc.Credential(field); secret != "" {
			secrets[id] = secret
		}
	}
	log.Info("Webhook verifier ready", zap.Int("providers", len(secrets)))
	return webhook.NewVerifier(secrets, log)
}
