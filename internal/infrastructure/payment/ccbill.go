package payment

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/creatorcommerce/backend/internal/domain/payment"
)

// CCBill endpoints
const (
	CCBillFlexFormURL = "https://api.ccbill.com/wap-frontflex/flexforms"
	CCBillDatalinkURL = "https://datalink.ccbill.com/utils/subscriptionManagement.cgi"
)

// RebillsInfinite is the sentinel rebill count meaning the subscription
// recurs until cancelled.
const RebillsInfinite = 99

// Errors for CCBill configuration
var (
	ErrCCBillMissingAccount    = errors.New("ccbill: client account number is required")
	ErrCCBillMissingSubaccount = errors.New("ccbill: client subaccount is required")
	ErrCCBillMissingSalt       = errors.New("ccbill: form salt is required")
	ErrCCBillManagementFailed  = errors.New("ccbill: subscription management request failed")
)

// CCBillConfig holds configuration for CCBill's hosted payment forms and
// the datalink management channel.
type CCBillConfig struct {
	// Account is the 6-digit client account number
	Account string
	// Subaccount is the 4-digit client subaccount
	Subaccount string
	// Salt is the shared secret appended when computing form digests
	Salt string
	// FlexFormID is the hosted FlexForm to link to
	FlexFormID string
	// Username and Password authenticate datalink management calls
	Username string
	Password string
	// FlexFormBaseURL overrides the hosted form endpoint (tests)
	FlexFormBaseURL string
	// DatalinkBaseURL overrides the management endpoint (tests)
	DatalinkBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the CCBill configuration
func (c *CCBillConfig) Validate() error {
	if c.Account == "" {
		return ErrCCBillMissingAccount
	}
	if c.Subaccount == "" {
		return ErrCCBillMissingSubaccount
	}
	if c.Salt == "" {
		return ErrCCBillMissingSalt
	}
	if c.FlexFormBaseURL == "" {
		c.FlexFormBaseURL = CCBillFlexFormURL
	}
	if c.DatalinkBaseURL == "" {
		c.DatalinkBaseURL = CCBillDatalinkURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return nil
}

// ---------------------------------------------------------------------------
// Form digests
// ---------------------------------------------------------------------------

// FormDigest computes the one-time purchase form digest:
// MD5(price + period + currencyCode + salt), lowercase hex. The price must
// be rendered with exactly two decimal places or the hosted form rejects
// the digest.
func FormDigest(price decimal.Decimal, periodDays int, currencyCode, salt string) string {
	sum := md5.Sum([]byte(price.StringFixed(2) + strconv.Itoa(periodDays) + currencyCode + salt))
	return hex.EncodeToString(sum[:])
}

// SubscriptionFormDigest computes the recurring purchase form digest:
// MD5(initialPrice + initialPeriod + recurringPrice + recurringPeriod +
// rebills + currencyCode + salt), lowercase hex. Pass RebillsInfinite for
// until-cancelled subscriptions.
func SubscriptionFormDigest(initialPrice decimal.Decimal, initialPeriodDays int, recurringPrice decimal.Decimal, recurringPeriodDays, rebills int, currencyCode, salt string) string {
	sum := md5.Sum([]byte(initialPrice.StringFixed(2) + strconv.Itoa(initialPeriodDays) +
		recurringPrice.StringFixed(2) + strconv.Itoa(recurringPeriodDays) +
		strconv.Itoa(rebills) + currencyCode + salt))
	return hex.EncodeToString(sum[:])
}

// ---------------------------------------------------------------------------
// Processor
// ---------------------------------------------------------------------------

// CCBillProcessor builds signed hosted-form links for fiat payments and
// drives the datalink channel for subscription management. CCBill is
// link-based: there is no API-side charge object, so charge outcomes
// arrive exclusively through webhooks.
type CCBillProcessor struct {
	config     *CCBillConfig
	httpClient *http.Client
}

// NewCCBillProcessor creates a new CCBill processor
func NewCCBillProcessor(config *CCBillConfig) (*CCBillProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &CCBillProcessor{
		config:     config,
		httpClient: newHTTPClient(config.TimeoutSeconds, 5),
	}, nil
}

// Name returns the processor key used for dispatch
func (p *CCBillProcessor) Name() string { return "ccbill" }

// PaymentLink builds a signed one-time purchase link. The intent currency
// must be CCBill's numeric ISO code (e.g. "840" for USD).
func (p *CCBillProcessor) PaymentLink(intent *payment.Intent, periodDays int) (*payment.Link, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	digest := FormDigest(intent.Amount, periodDays, intent.Currency, p.config.Salt)

	query := url.Values{
		"clientAccnum":  {p.config.Account},
		"clientSubacc":  {p.config.Subaccount},
		"initialPrice":  {intent.Amount.StringFixed(2)},
		"initialPeriod": {strconv.Itoa(periodDays)},
		"currencyCode":  {intent.Currency},
		"formDigest":    {digest},
	}
	for k, v := range intent.Metadata {
		query.Set(k, v)
	}

	return &payment.Link{
		ProcessorID: p.Name(),
		URL:         p.config.FlexFormBaseURL + "/" + url.PathEscape(p.config.FlexFormID) + "?" + query.Encode(),
		Digest:      digest,
	}, nil
}

// SubscriptionLink builds a signed recurring purchase link. Pass
// RebillsInfinite to recur until cancelled.
func (p *CCBillProcessor) SubscriptionLink(intent *payment.Intent, initialPeriodDays int, recurringPrice decimal.Decimal, recurringPeriodDays, rebills int) (*payment.Link, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	digest := SubscriptionFormDigest(intent.Amount, initialPeriodDays,
		recurringPrice, recurringPeriodDays, rebills, intent.Currency, p.config.Salt)

	query := url.Values{
		"clientAccnum":    {p.config.Account},
		"clientSubacc":    {p.config.Subaccount},
		"initialPrice":    {intent.Amount.StringFixed(2)},
		"initialPeriod":   {strconv.Itoa(initialPeriodDays)},
		"recurringPrice":  {recurringPrice.StringFixed(2)},
		"recurringPeriod": {strconv.Itoa(recurringPeriodDays)},
		"numRebills":      {strconv.Itoa(rebills)},
		"currencyCode":    {intent.Currency},
		"formDigest":      {digest},
	}
	for k, v := range intent.Metadata {
		query.Set(k, v)
	}

	return &payment.Link{
		ProcessorID: p.Name(),
		URL:         p.config.FlexFormBaseURL + "/" + url.PathEscape(p.config.FlexFormID) + "?" + query.Encode(),
		Digest:      digest,
	}, nil
}

// ---------------------------------------------------------------------------
// Datalink management channel
// ---------------------------------------------------------------------------

// CancelSubscription cancels an active subscription over datalink
func (p *CCBillProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	resp, err := p.datalink(ctx, url.Values{
		"action":         {"cancelSubscription"},
		"subscriptionId": {subscriptionID},
	})
	if err != nil {
		return err
	}
	// Datalink reports "1" on the results line for success.
	if resp["results"] != "1" {
		return fmt.Errorf("%w: results=%s", ErrCCBillManagementFailed, resp["results"])
	}
	return nil
}

// ExtendSubscription adds days to an active subscription over datalink
func (p *CCBillProcessor) ExtendSubscription(ctx context.Context, subscriptionID string, days int) error {
	resp, err := p.datalink(ctx, url.Values{
		"action":         {"extendSubscription"},
		"subscriptionId": {subscriptionID},
		"extendLength":   {strconv.Itoa(days)},
	})
	if err != nil {
		return err
	}
	if resp["results"] != "1" {
		return fmt.Errorf("%w: results=%s", ErrCCBillManagementFailed, resp["results"])
	}
	return nil
}

// SubscriptionStatus fetches the raw datalink view of a subscription
func (p *CCBillProcessor) SubscriptionStatus(ctx context.Context, subscriptionID string) (map[string]string, error) {
	return p.datalink(ctx, url.Values{
		"action":         {"viewSubscriptionStatus"},
		"subscriptionId": {subscriptionID},
	})
}

// datalink performs an authenticated management GET and parses the flat
// response body.
func (p *CCBillProcessor) datalink(ctx context.Context, params url.Values) (map[string]string, error) {
	params.Set("clientAccnum", p.config.Account)
	params.Set("usingSubacc", p.config.Subaccount)
	params.Set("username", p.config.Username)
	params.Set("password", p.config.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.config.DatalinkBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ccbill: failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrProcessorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("ccbill: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrCCBillManagementFailed, resp.StatusCode)
	}

	return parseFlatResponse(body), nil
}

// parseFlatResponse parses datalink's line-oriented body. Lines are either
// "key=value" pairs or bare values; a bare first line is stored under
// "results" to match the legacy response shape.
func parseFlatResponse(body []byte) map[string]string {
	out := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	line := 0
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if key, value, found := strings.Cut(text, "="); found {
			out[strings.TrimSpace(key)] = strings.TrimSpace(value)
		} else if line == 0 {
			out["results"] = text
		}
		line++
	}
	return out
}
