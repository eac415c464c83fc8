package payment

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/creatorcommerce/backend/internal/domain/payment"
)

// CryptoPaymentManager dispatches charge operations to registered crypto
// processors by name. Registration happens at composition time; lookups
// never mutate the map so no locking is needed.
type CryptoPaymentManager struct {
	processors map[string]payment.CryptoProcessor
	log        *zap.Logger
}

// NewCryptoPaymentManager creates an empty manager
func NewCryptoPaymentManager(log *zap.Logger) *CryptoPaymentManager {
	return &CryptoPaymentManager{
		processors: make(map[string]payment.CryptoProcessor),
		log:        log,
	}
}

// Register adds a processor under its own name, replacing any previous
// registration.
func (m *CryptoPaymentManager) Register(processor payment.CryptoProcessor) {
	m.processors[processor.Name()] = processor
	m.log.Info("crypto processor registered", zap.String("processor", processor.Name()))
}

// Processors returns the registered processor names, sorted
func (m *CryptoPaymentManager) Processors() []string {
	names := make([]string, 0, len(m.processors))
	for name := range m.processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreatePayment creates a charge with the processor named by the intent
func (m *CryptoPaymentManager) CreatePayment(ctx context.Context, intent *payment.Intent, opts payment.CryptoOptions) (*payment.CryptoCharge, error) {
	processor, ok := m.processors[intent.ProcessorID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payment.ErrUnknownProcessor, intent.ProcessorID)
	}

	charge, err := processor.CreatePayment(ctx, intent, opts)
	if err != nil {
		m.log.Warn("crypto charge creation failed",
			zap.String("processor", intent.ProcessorID),
			zap.String("order_id", intent.OrderID),
			zap.Error(err))
		return nil, err
	}

	m.log.Info("crypto charge created",
		zap.String("processor", intent.ProcessorID),
		zap.String("order_id", intent.OrderID),
		zap.String("charge_id", charge.ChargeID))
	return charge, nil
}

// GetStatus reads back a charge status from the named processor
func (m *CryptoPaymentManager) GetStatus(ctx context.Context, processorID, chargeID string) (payment.ChargeStatus, error) {
	processor, ok := m.processors[processorID]
	if !ok {
		return "", fmt.Errorf("%w: %s", payment.ErrUnknownProcessor, processorID)
	}
	return processor.GetStatus(ctx, chargeID)
}
