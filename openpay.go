// Package openpay implements the customer side of an open, grant-negotiation
// payment protocol: wallet discovery, scoped access grants, quotes,
// interactive consent and settlement across two independent financial
// institutions.
package openpay

import (
	"context"
	"net/http"
	"time"

	"github.com/vitwit/openpay/authgate"
	"github.com/vitwit/openpay/directory"
	"github.com/vitwit/openpay/flow"
	"github.com/vitwit/openpay/logger"
	"github.com/vitwit/openpay/metrics"
	"github.com/vitwit/openpay/types"
)

// OpenPay is the main struct wiring the payment flow orchestrator and its
// collaborators. Construct one per process and share it across sessions.
type OpenPay struct {
	orchestrator *flow.Orchestrator
	config       *types.Config

	httpClient *http.Client
	timeout    time.Duration
	logger     logger.Logger
	metrics    metrics.Recorder
}

// New creates an OpenPay instance over the given participant directory.
func New(config *types.Config, dir directory.Directory, opts ...Option) *OpenPay {
	if config == nil {
		config = &types.Config{}
	}

	o := &OpenPay{
		config:  config,
		timeout: 30 * time.Second,
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
	}
	if config.DefaultTimeout > 0 {
		o.timeout = config.DefaultTimeout
	}
	if config.LogLevel != "" {
		o.logger = logger.NewZapLogger(config.LogLevel)
	}
	if config.EnableMetrics {
		o.metrics = metrics.NewPrometheusRecorder()
	}

	for _, opt := range opts {
		opt(o)
	}

	o.orchestrator = flow.New(dir, flow.Options{
		HTTPClient: o.httpClient,
		Timeout:    o.timeout,
		EnvPrefix:  config.EnvPrefix,
		Logger:     o.logger,
		Metrics:    o.metrics,
	})
	return o
}

// NewWithDefaults creates an OpenPay instance with default configuration.
func NewWithDefaults(dir directory.Directory) *OpenPay {
	return New(&types.Config{
		DefaultTimeout: 30 * time.Second,
		LogLevel:       "",
		EnableMetrics:  false,
	}, dir)
}

// Identify resolves both participants and verifies the customer's secret;
// the first stage of the resumable flow.
func (o *OpenPay) Identify(ctx context.Context, in flow.IdentifyInput) (*flow.Context, error) {
	return o.orchestrator.Identify(ctx, in)
}

// Charge is the single best-effort call: identification through the consent
// request. The result carries the redirect URL the end user must visit and
// the continuation to finalize with afterwards.
func (o *OpenPay) Charge(ctx context.Context, in flow.IdentifyInput) (*flow.Context, error) {
	return o.orchestrator.Charge(ctx, in)
}

// CreateIncoming is stage one of the resumable flow: wallet resolution and
// incoming-payment creation.
func (o *OpenPay) CreateIncoming(ctx context.Context, c *flow.Context) (*flow.Context, error) {
	return o.orchestrator.CreateIncoming(ctx, c)
}

// RequestAuthorization is stage two: quote negotiation and the interactive
// outgoing-payment grant request.
func (o *OpenPay) RequestAuthorization(ctx context.Context, c *flow.Context) (*flow.Context, error) {
	return o.orchestrator.RequestAuthorization(ctx, c)
}

// Finalize is stage three, invoked after the human completed consent,
// possibly by a different process instance.
func (o *OpenPay) Finalize(ctx context.Context, c *flow.Context) (*flow.Context, error) {
	return o.orchestrator.Finalize(ctx, c)
}

// VerifySecret checks a submitted secret against a stored hash.
func (o *OpenPay) VerifySecret(storedValue, provided string) error {
	return authgate.VerifySecret(storedValue, provided)
}

// Supported returns the grant access kinds this library negotiates.
func (o *OpenPay) Supported() []types.AccessType {
	return []types.AccessType{
		types.AccessIncomingPayment,
		types.AccessQuote,
		types.AccessOutgoingPayment,
	}
}

// Close releases idle connections held by the configured HTTP client.
func (o *OpenPay) Close() {
	if o.httpClient != nil {
		o.httpClient.CloseIdleConnections()
	}
}

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = 1
)

// GetVersion returns version information.
func GetVersion() map[string]interface{} {
	return map[string]interface{}{
		"library_version":  Version,
		"protocol_version": ProtocolVersion,
		"supported_access": []string{
			"incoming-payment", "quote", "outgoing-payment",
		},
		"supported_secret_schemes": []string{
			"argon2id", "bcrypt", "plaintext",
		},
	}
}
