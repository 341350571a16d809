// Package flow drives a charge from identification to settlement across two
// independent counterparties: wallet discovery, secret verification, grant
// negotiation, quote creation and final payment execution. The interactive
// consent wait between authorization and finalization is not a blocking
// suspension; it is a separate invocation against a serialized Context.
package flow

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vitwit/openpay/amount"
	"github.com/vitwit/openpay/authgate"
	"github.com/vitwit/openpay/clients"
	"github.com/vitwit/openpay/credentials"
	"github.com/vitwit/openpay/directory"
	"github.com/vitwit/openpay/logger"
	"github.com/vitwit/openpay/metrics"
	"github.com/vitwit/openpay/types"
)

// Flow step names attached to failures.
const (
	StepIdentify       = "identify"
	StepAuthorize      = "authorize"
	StepResolveWallets = "resolve-wallets"
	StepCreateIncoming = "create-incoming"
	StepCreateQuote    = "create-quote"
	StepRequestConsent = "request-consent"
	StepFinalize       = "finalize"
)

// Options configures an Orchestrator. Zero values fall back to defaults.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	EnvPrefix  string
	Logger     logger.Logger
	Metrics    metrics.Recorder
}

// Orchestrator sequences the payment flow. One logical flow per session; no
// state is shared across sessions, so a single orchestrator serves many
// concurrent payments.
type Orchestrator struct {
	dir       directory.Directory
	wallets   *clients.WalletClient
	http      *http.Client
	timeout   time.Duration
	envPrefix string
	log       logger.Logger
	rec       metrics.Recorder
}

// New creates an orchestrator over the given participant directory.
func New(dir directory.Directory, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.NoopLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopRecorder{}
	}
	return &Orchestrator{
		dir:       dir,
		wallets:   clients.NewWalletClient(opts.HTTPClient, opts.Timeout),
		http:      opts.HTTPClient,
		timeout:   opts.Timeout,
		envPrefix: opts.EnvPrefix,
		log:       opts.Logger,
		rec:       opts.Metrics,
	}
}

// IdentifyInput starts a payment flow.
type IdentifyInput struct {
	CustomerID string       `json:"customerId" validate:"required"`
	MerchantID string       `json:"merchantId" validate:"required"`
	Secret     string       `json:"secret" validate:"required"`
	Charge     types.Charge `json:"charge"`
}

// Identify resolves both participant records and verifies the customer's
// secret. Both lookups must succeed before any network call to a
// counterparty is made. The returned context is in AUTHORIZED status.
func (o *Orchestrator) Identify(ctx context.Context, in IdentifyInput) (*Context, error) {
	customer, err := o.dir.FindCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, o.fail(StepIdentify, types.RoleCustomer, "", err)
	}
	merchant, err := o.dir.FindMerchant(ctx, in.MerchantID)
	if err != nil {
		return nil, o.fail(StepIdentify, types.RoleMerchant, "", err)
	}

	if err := authgate.VerifySecret(customer.StoredSecret(), in.Secret); err != nil {
		return nil, o.fail(StepAuthorize, types.RoleCustomer, "", err)
	}

	// Canonicalize the charge amount up front so a malformed charge is a
	// 400 before anything touches the network.
	normalized, err := amount.NormalizeMinorUnits(in.Charge.AmountMinorUnits)
	if err != nil {
		return nil, o.fail(StepIdentify, types.RoleCustomer, "", err)
	}
	charge := in.Charge
	charge.AmountMinorUnits = normalized

	c := &Context{
		Version:    ContextVersion,
		SessionID:  uuid.NewString(),
		Status:     types.StatusAuthorized,
		CustomerID: customer.ID,
		MerchantID: merchant.ID,
		Charge:     charge,
	}

	o.log.Info("payment session authorized", map[string]any{
		"session": c.SessionID, "customer": customer.ID, "merchant": merchant.ID,
	})
	o.rec.IncCounter("session_authorized", map[string]string{"role": string(types.RoleCustomer)})
	return c, nil
}

// CreateIncoming resolves both wallets concurrently, negotiates a
// non-interactive incoming-payment grant on the receiver's authorization
// server and creates the incoming payment. Requires AUTHORIZED, returns
// INCOMING_CREATED.
func (o *Orchestrator) CreateIncoming(ctx context.Context, c *Context) (*Context, error) {
	if err := c.requireStatus(types.StatusAuthorized, "create-incoming"); err != nil {
		return nil, err
	}

	customer, merchant, err := o.participants(ctx, c)
	if err != nil {
		return nil, err
	}

	// Both authenticated client pairs are constructed symmetrically before
	// any counterparty call, so a sender credential problem surfaces before
	// anything is created on the receiver's ledger.
	_, _, err = o.clientsFor(customer)
	if err != nil {
		return nil, o.fail(StepResolveWallets, types.RoleCustomer, c.SessionID, err)
	}
	receiverGrants, receiverResources, err := o.clientsFor(merchant)
	if err != nil {
		return nil, o.fail(StepResolveWallets, types.RoleMerchant, c.SessionID, err)
	}

	senderWallet, receiverWallet, err := o.resolveWallets(ctx, customer, merchant)
	if err != nil {
		return nil, err
	}

	session := c.session(customer, merchant)
	session.Status = types.StatusWalletsResolved
	o.log.Debug("wallets resolved", map[string]any{
		"session":  session.ID,
		"sender":   senderWallet.ID,
		"receiver": receiverWallet.ID,
	})

	amt, err := amount.BuildAmount(&c.Charge, receiverWallet)
	if err != nil {
		return nil, o.fail(StepCreateIncoming, types.RoleMerchant, c.SessionID, err)
	}

	start := time.Now()
	grant, err := receiverGrants.RequestGrant(ctx, receiverWallet.AuthServer, types.AccessItem{
		Type: types.AccessIncomingPayment,
	}, false)
	if err != nil {
		return nil, o.fail(StepCreateIncoming, types.RoleMerchant, c.SessionID, err)
	}

	incoming, err := receiverResources.CreateIncomingPayment(ctx, receiverWallet.ResourceServer, grant.AccessToken, &types.IncomingPaymentRequest{
		WalletAddress:  receiverWallet.ID,
		IncomingAmount: amt,
		Metadata:       chargeMetadata(&c.Charge),
	})
	if err != nil {
		return nil, o.fail(StepCreateIncoming, types.RoleMerchant, c.SessionID, err)
	}
	o.rec.ObserveLatency("create_incoming", time.Since(start), map[string]string{"role": string(types.RoleMerchant)})

	next := *c
	next.Status = types.StatusIncomingCreated
	next.Amount = amt
	next.SenderWallet = senderWallet
	next.ReceiverWallet = receiverWallet
	next.IncomingPaymentID = incoming.ID
	// The resource server may not echo an amount back; fall back to the
	// amount this flow computed.
	next.ReceiveAmount = incoming.IncomingAmount
	if next.ReceiveAmount == nil {
		next.ReceiveAmount = amt
	}

	o.log.Info("incoming payment created", map[string]any{
		"session": c.SessionID, "incomingPayment": incoming.ID,
		"amount": amount.FormatAmount(amt),
	})
	o.rec.IncCounter("incoming_created", map[string]string{"role": string(types.RoleMerchant)})
	return &next, nil
}

// RequestAuthorization negotiates a quote on the sender's side, then
// requests the interactive outgoing-payment grant capped at the quote's
// debit amount. It does not wait for the human: the returned context is in
// CONSENT_PENDING status and carries the redirect URL and continuation
// handle; resumption happens via Finalize on a later invocation.
func (o *Orchestrator) RequestAuthorization(ctx context.Context, c *Context) (*Context, error) {
	if err := c.requireStatus(types.StatusIncomingCreated, "request-authorization"); err != nil {
		return nil, err
	}

	customer, _, err := o.participants(ctx, c)
	if err != nil {
		return nil, err
	}

	senderGrants, senderResources, err := o.clientsFor(customer)
	if err != nil {
		return nil, o.fail(StepCreateQuote, types.RoleCustomer, c.SessionID, err)
	}

	start := time.Now()
	quoteGrant, err := senderGrants.RequestGrant(ctx, c.SenderWallet.AuthServer, types.AccessItem{
		Type: types.AccessQuote,
	}, false)
	if err != nil {
		return nil, o.fail(StepCreateQuote, types.RoleCustomer, c.SessionID, err)
	}

	quote, err := senderResources.CreateQuote(ctx, c.SenderWallet.ResourceServer, quoteGrant.AccessToken, &types.QuoteRequest{
		WalletAddress: c.SenderWallet.ID,
		Receiver:      c.IncomingPaymentID,
		Method:        clients.QuoteMethod,
		ReceiveAmount: c.ReceiveAmount,
	})
	if err != nil {
		return nil, o.fail(StepCreateQuote, types.RoleCustomer, c.SessionID, err)
	}
	o.rec.ObserveLatency("create_quote", time.Since(start), map[string]string{"role": string(types.RoleCustomer)})

	outgoingGrant, err := senderGrants.RequestGrant(ctx, c.SenderWallet.AuthServer, types.AccessItem{
		Type:       types.AccessOutgoingPayment,
		Identifier: c.SenderWallet.ID,
		Limits:     &types.AccessLimits{DebitAmount: quote.DebitAmount},
	}, true)
	if err != nil {
		return nil, o.fail(StepRequestConsent, types.RoleCustomer, c.SessionID, err)
	}

	next := *c
	next.Status = types.StatusConsentPending
	next.QuoteID = quote.ID
	next.DebitAmount = quote.DebitAmount
	next.InteractRedirect = outgoingGrant.InteractRedirect
	next.Continuation = outgoingGrant.Continuation

	o.log.Info("consent pending", map[string]any{
		"session": c.SessionID, "quote": quote.ID,
		"debit": amount.FormatAmount(quote.DebitAmount),
	})
	o.rec.IncCounter("consent_pending", map[string]string{"role": string(types.RoleCustomer)})
	return &next, nil
}

// Finalize continues the outgoing-payment grant after the human completed
// consent and creates the outgoing payment. If consent is still pending (or
// the grant has lapsed) it fails with a caller-retryable not-finalized
// error and the context is unchanged; nothing is retried internally.
// Requires CONSENT_PENDING, returns SETTLED.
func (o *Orchestrator) Finalize(ctx context.Context, c *Context) (*Context, error) {
	if err := c.requireStatus(types.StatusConsentPending, "finalize"); err != nil {
		return nil, err
	}

	customer, _, err := o.participants(ctx, c)
	if err != nil {
		return nil, err
	}

	senderGrants, senderResources, err := o.clientsFor(customer)
	if err != nil {
		return nil, o.fail(StepFinalize, types.RoleCustomer, c.SessionID, err)
	}

	grant, err := senderGrants.ContinueGrant(ctx, *c.Continuation)
	if err != nil {
		if types.IsCode(err, types.CodeGrantNotFinalized) {
			// Not a terminal failure: the caller re-invokes once consent
			// is truly complete.
			return nil, err
		}
		return nil, o.fail(StepFinalize, types.RoleCustomer, c.SessionID, err)
	}

	start := time.Now()
	outgoing, err := senderResources.CreateOutgoingPayment(ctx, c.SenderWallet.ResourceServer, grant.AccessToken, &types.OutgoingPaymentRequest{
		WalletAddress: c.SenderWallet.ID,
		QuoteID:       c.QuoteID,
		Metadata:      chargeMetadata(&c.Charge),
	})
	if err != nil {
		return nil, o.fail(StepFinalize, types.RoleCustomer, c.SessionID, err)
	}
	if outgoing.Failed {
		err := types.NewProtocolError(nil, "outgoing payment %s reported failed", outgoing.ID)
		return nil, o.fail(StepFinalize, types.RoleCustomer, c.SessionID, err)
	}
	o.rec.ObserveLatency("create_outgoing", time.Since(start), map[string]string{"role": string(types.RoleCustomer)})

	next := *c
	next.Status = types.StatusSettled
	next.OutgoingPaymentID = outgoing.ID

	o.log.Info("payment settled", map[string]any{
		"session": c.SessionID, "outgoingPayment": outgoing.ID,
	})
	o.rec.IncCounter("settled", map[string]string{"role": string(types.RoleCustomer)})
	return &next, nil
}

// Charge is the single best-effort shape: identification through the
// consent request in one call. The returned context is CONSENT_PENDING;
// callers trigger Finalize out of band once the human has consented.
func (o *Orchestrator) Charge(ctx context.Context, in IdentifyInput) (*Context, error) {
	c, err := o.Identify(ctx, in)
	if err != nil {
		return nil, err
	}
	c, err = o.CreateIncoming(ctx, c)
	if err != nil {
		return nil, err
	}
	return o.RequestAuthorization(ctx, c)
}

// resolveWallets fetches the sender and receiver wallet records. The two
// lookups have no data dependency on each other and run in parallel.
func (o *Orchestrator) resolveWallets(ctx context.Context, customer *types.Customer, merchant *types.Merchant) (*types.Wallet, *types.Wallet, error) {
	var senderWallet, receiverWallet *types.Wallet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := o.wallets.GetWallet(gctx, customer.WalletAddress())
		if err != nil {
			return o.fail(StepResolveWallets, types.RoleCustomer, "", err)
		}
		senderWallet = w
		return nil
	})
	g.Go(func() error {
		w, err := o.wallets.GetWallet(gctx, merchant.WalletAddress())
		if err != nil {
			return o.fail(StepResolveWallets, types.RoleMerchant, "", err)
		}
		receiverWallet = w
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return senderWallet, receiverWallet, nil
}

// participants re-resolves both records from the directory. Stages are
// independent invocations, so each one starts from identifiers only.
func (o *Orchestrator) participants(ctx context.Context, c *Context) (*types.Customer, *types.Merchant, error) {
	customer, err := o.dir.FindCustomer(ctx, c.CustomerID)
	if err != nil {
		return nil, nil, o.fail(StepIdentify, types.RoleCustomer, c.SessionID, err)
	}
	merchant, err := o.dir.FindMerchant(ctx, c.MerchantID)
	if err != nil {
		return nil, nil, o.fail(StepIdentify, types.RoleMerchant, c.SessionID, err)
	}
	return customer, merchant, nil
}

// clientsFor resolves the participant's credentials through the fallback
// chain and builds its authenticated grant and resource clients.
func (o *Orchestrator) clientsFor(p types.Participant) (*clients.GrantClient, *clients.ResourceClient, error) {
	creds, err := credentials.ForParticipant(p, o.envPrefix).Resolve(p.Role())
	if err != nil {
		return nil, nil, err
	}
	grants, err := clients.NewGrantClient(creds, o.http, o.timeout)
	if err != nil {
		return nil, nil, err
	}
	resources, err := clients.NewResourceClient(creds, o.http, o.timeout)
	if err != nil {
		return nil, nil, err
	}
	return grants, resources, nil
}

// fail attaches the offending step and role to the first error of an
// invocation and records the failure. Resources already created on a
// counterparty are not rolled back.
func (o *Orchestrator) fail(step string, role types.Role, sessionID string, err error) error {
	o.rec.IncCounter("flow_failed", map[string]string{"role": string(role)})
	o.log.Warn("payment flow failed", map[string]any{
		"session": sessionID, "step": step, "role": string(role), "error": err.Error(),
	})

	if e, ok := types.AsError(err); ok {
		if e.Step != "" {
			return e
		}
		tagged := *e
		tagged.Step = step
		tagged.Role = role
		return &tagged
	}

	tagged := types.NewProtocolError(err, "%v", err)
	tagged.Step = step
	tagged.Role = role
	return tagged
}

func chargeMetadata(c *types.Charge) *types.PaymentMetadata {
	if c.Description == "" {
		return nil
	}
	return &types.PaymentMetadata{Description: c.Description}
}
