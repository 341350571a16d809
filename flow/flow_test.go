package flow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/openpay/authgate"
	"github.com/vitwit/openpay/directory"
	"github.com/vitwit/openpay/types"
)

// testNetwork simulates both counterparties: wallet discovery documents,
// one authorization server and one resource server per side, all behind a
// single mux. It counts calls per endpoint so tests can assert that a flow
// aborted before touching the network.
type testNetwork struct {
	srv *httptest.Server

	mu        sync.Mutex
	calls     map[string]int
	consented bool

	// outgoingHandler, when set, replaces the default outgoing-payment
	// behavior.
	outgoingHandler http.HandlerFunc
}

func newTestNetwork(t *testing.T) *testNetwork {
	t.Helper()
	n := &testNetwork{calls: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallets/{name}", n.handleWallet)
	mux.HandleFunc("POST /auth", n.handleGrant)
	mux.HandleFunc("POST /auth/continue/{id}", n.handleContinue)
	mux.HandleFunc("POST /rs/incoming-payments", n.handleIncoming)
	mux.HandleFunc("POST /rs/quotes", n.handleQuote)
	mux.HandleFunc("POST /rs/outgoing-payments", n.handleOutgoing)

	n.srv = httptest.NewServer(mux)
	t.Cleanup(n.srv.Close)
	return n
}

func (n *testNetwork) count(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[name]++
}

func (n *testNetwork) callCount(name string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[name]
}

func (n *testNetwork) totalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, c := range n.calls {
		total += c
	}
	return total
}

func (n *testNetwork) setConsented(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.consented = v
}

func (n *testNetwork) handleWallet(w http.ResponseWriter, r *http.Request) {
	n.count("wallet")
	json.NewEncoder(w).Encode(types.Wallet{
		ID:             n.srv.URL + r.URL.Path,
		AssetCode:      "USD",
		AssetScale:     2,
		AuthServer:     n.srv.URL + "/auth",
		ResourceServer: n.srv.URL + "/rs",
	})
}

func (n *testNetwork) handleGrant(w http.ResponseWriter, r *http.Request) {
	n.count("grant")
	var req types.GrantRequest
	json.NewDecoder(r.Body).Decode(&req)

	access := req.AccessToken.Access[0]
	if access.Type.Interactive() {
		json.NewEncoder(w).Encode(types.GrantResponse{
			Interact: &types.InteractResponse{Redirect: n.srv.URL + "/consent/1"},
			Continue: &types.ContinueResponse{
				URI:         n.srv.URL + "/auth/continue/1",
				AccessToken: types.TokenValue{Value: "continue-token"},
			},
		})
		return
	}
	json.NewEncoder(w).Encode(types.GrantResponse{
		AccessToken: &types.TokenValue{Value: "token-" + string(access.Type)},
	})
}

func (n *testNetwork) handleContinue(w http.ResponseWriter, r *http.Request) {
	n.count("continue")
	n.mu.Lock()
	done := n.consented
	n.mu.Unlock()

	if !done {
		json.NewEncoder(w).Encode(types.GrantResponse{
			Continue: &types.ContinueResponse{
				URI:         n.srv.URL + "/auth/continue/1",
				AccessToken: types.TokenValue{Value: "continue-token"},
			},
		})
		return
	}
	json.NewEncoder(w).Encode(types.GrantResponse{
		AccessToken: &types.TokenValue{Value: "token-outgoing"},
	})
}

func (n *testNetwork) handleIncoming(w http.ResponseWriter, r *http.Request) {
	n.count("incoming")
	if r.Header.Get("Authorization") != "GNAP token-incoming-payment" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req types.IncomingPaymentRequest
	json.NewDecoder(r.Body).Decode(&req)
	json.NewEncoder(w).Encode(types.IncomingPayment{
		ID:             n.srv.URL + "/rs/incoming-payments/ip-1",
		WalletAddress:  req.WalletAddress,
		IncomingAmount: req.IncomingAmount,
		Metadata:       req.Metadata,
	})
}

func (n *testNetwork) handleQuote(w http.ResponseWriter, r *http.Request) {
	n.count("quote")
	if r.Header.Get("Authorization") != "GNAP token-quote" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req types.QuoteRequest
	json.NewDecoder(r.Body).Decode(&req)
	json.NewEncoder(w).Encode(types.Quote{
		ID:            n.srv.URL + "/rs/quotes/q-1",
		WalletAddress: req.WalletAddress,
		Receiver:      req.Receiver,
		Method:        req.Method,
		DebitAmount:   &types.Amount{Value: "1010", AssetCode: "USD", AssetScale: 2},
		ReceiveAmount: req.ReceiveAmount,
	})
}

func (n *testNetwork) handleOutgoing(w http.ResponseWriter, r *http.Request) {
	n.count("outgoing")
	n.mu.Lock()
	override := n.outgoingHandler
	n.mu.Unlock()
	if override != nil {
		override(w, r)
		return
	}
	if r.Header.Get("Authorization") != "GNAP token-outgoing" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req types.OutgoingPaymentRequest
	json.NewDecoder(r.Body).Decode(&req)
	json.NewEncoder(w).Encode(types.OutgoingPayment{
		ID:            n.srv.URL + "/rs/outgoing-payments/op-1",
		WalletAddress: req.WalletAddress,
		QuoteID:       req.QuoteID,
	})
}

func testKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{9}, 32))
}

func seedDirectory(t *testing.T, n *testNetwork) *directory.MemoryDirectory {
	t.Helper()
	secretHash, err := authgate.HashSecret("1234")
	require.NoError(t, err)

	dir := directory.NewMemoryDirectory()
	dir.AddCustomer(&types.Customer{Account: types.Account{
		ID:         "alice@example.com",
		WalletURL:  n.srv.URL + "/wallets/alice",
		KeyID:      "alice-key-1",
		PrivateKey: testKey(),
		SecretHash: secretHash,
	}})
	dir.AddMerchant(&types.Merchant{Account: types.Account{
		ID:         "store@example.com",
		WalletURL:  n.srv.URL + "/wallets/store",
		KeyID:      "store-key-1",
		PrivateKey: testKey(),
	}})
	return dir
}

func chargeInput() IdentifyInput {
	return IdentifyInput{
		CustomerID: "alice@example.com",
		MerchantID: "store@example.com",
		Secret:     "1234",
		Charge:     types.Charge{AmountMinorUnits: "1000", Description: "coffee beans"},
	}
}

func newTestOrchestrator(t *testing.T, n *testNetwork) *Orchestrator {
	t.Helper()
	return New(seedDirectory(t, n), Options{Timeout: 5 * time.Second})
}

func TestChargeThroughConsent(t *testing.T) {
	n := newTestNetwork(t)
	o := newTestOrchestrator(t, n)

	c, err := o.Charge(context.Background(), chargeInput())
	require.NoError(t, err)

	assert.Equal(t, types.StatusConsentPending, c.Status)
	assert.NotEmpty(t, c.InteractRedirect)
	require.NotNil(t, c.Continuation)
	assert.NotEmpty(t, c.Continuation.URI)
	assert.NotEmpty(t, c.SessionID)
	assert.True(t, strings.HasSuffix(c.IncomingPaymentID, "/ip-1"))
	assert.True(t, strings.HasSuffix(c.QuoteID, "/q-1"))
	assert.Equal(t, "1010", c.DebitAmount.Value)

	// Two wallet lookups, three grants (incoming, quote, outgoing), one
	// resource each for incoming and quote.
	assert.Equal(t, 2, n.callCount("wallet"))
	assert.Equal(t, 3, n.callCount("grant"))
	assert.Equal(t, 1, n.callCount("incoming"))
	assert.Equal(t, 1, n.callCount("quote"))
	assert.Equal(t, 0, n.callCount("outgoing"))
}

func TestFinalizeBeforeAndAfterConsent(t *testing.T) {
	n := newTestNetwork(t)
	o := newTestOrchestrator(t, n)

	pending, err := o.Charge(context.Background(), chargeInput())
	require.NoError(t, err)

	_, err = o.Finalize(context.Background(), pending)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeGrantNotFinalized))
	assert.Equal(t, 0, n.callCount("outgoing"))

	n.setConsented(true)

	settled, err := o.Finalize(context.Background(), pending)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSettled, settled.Status)
	assert.True(t, strings.HasSuffix(settled.OutgoingPaymentID, "/op-1"))
	assert.Equal(t, 1, n.callCount("outgoing"))
}

func TestThreeStageFlowSurvivesSerialization(t *testing.T) {
	n := newTestNetwork(t)
	o := newTestOrchestrator(t, n)
	ctx := context.Background()

	stage, err := o.Identify(ctx, chargeInput())
	require.NoError(t, err)
	assert.Equal(t, types.StatusAuthorized, stage.Status)

	// The calling layer persists and reloads the context between stages.
	stage = roundTrip(t, stage)
	stage, err = o.CreateIncoming(ctx, stage)
	require.NoError(t, err)
	assert.Equal(t, types.StatusIncomingCreated, stage.Status)
	assert.NotEmpty(t, stage.IncomingPaymentID)

	stage = roundTrip(t, stage)
	stage, err = o.RequestAuthorization(ctx, stage)
	require.NoError(t, err)
	assert.Equal(t, types.StatusConsentPending, stage.Status)

	n.setConsented(true)

	stage = roundTrip(t, stage)
	stage, err = o.Finalize(ctx, stage)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSettled, stage.Status)
}

func roundTrip(t *testing.T, c *Context) *Context {
	t.Helper()
	data, err := c.Encode()
	require.NoError(t, err)
	decoded, err := DecodeContext(data)
	require.NoError(t, err)
	return decoded
}

func TestMissingMerchantAbortsBeforeNetwork(t *testing.T) {
	n := newTestNetwork(t)
	o := newTestOrchestrator(t, n)

	in := chargeInput()
	in.MerchantID = "ghost@example.com"

	_, err := o.Charge(context.Background(), in)
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeNotFound, e.Code)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Equal(t, types.RoleMerchant, e.Role)
	assert.Equal(t, 0, n.totalCalls())
}

func TestWrongSecretAbortsBeforeNetwork(t *testing.T) {
	n := newTestNetwork(t)
	o := newTestOrchestrator(t, n)

	in := chargeInput()
	in.Secret = "0000"

	_, err := o.Charge(context.Background(), in)
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeAuthorization, e.Code)
	assert.Equal(t, http.StatusUnauthorized, e.Status)
	assert.Equal(t, 0, n.totalCalls())
}

func TestMalformedChargeRejected(t *testing.T) {
	n := newTestNetwork(t)
	o := newTestOrchestrator(t, n)

	in := chargeInput()
	in.Charge.AmountMinorUnits = "12.50"

	_, err := o.Charge(context.Background(), in)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))
	assert.Equal(t, 0, n.totalCalls())
}

func TestStageOrderEnforced(t *testing.T) {
	n := newTestNetwork(t)
	o := newTestOrchestrator(t, n)
	ctx := context.Background()

	authorized, err := o.Identify(ctx, chargeInput())
	require.NoError(t, err)

	_, err = o.Finalize(ctx, authorized)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))

	_, err = o.RequestAuthorization(ctx, authorized)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))
}

// A decoded context can be truncated or hand-built; stages must reject one
// missing the fields they dereference instead of panicking on them.
func TestStageRejectsIncompleteContext(t *testing.T) {
	n := newTestNetwork(t)
	o := newTestOrchestrator(t, n)
	ctx := context.Background()

	pending, err := DecodeContext([]byte(`{
		"version": 1,
		"sessionId": "s-1",
		"status": "CONSENT_PENDING",
		"customerId": "alice@example.com",
		"merchantId": "store@example.com",
		"charge": {"amountMinorUnits": "1000"},
		"continuation": {"uri": "` + n.srv.URL + `/auth/continue/1", "accessToken": "continue-token"}
	}`))
	require.NoError(t, err)

	n.setConsented(true)

	_, err = o.Finalize(ctx, pending)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))
	assert.Equal(t, 0, n.totalCalls())

	incoming, err := DecodeContext([]byte(`{
		"version": 1,
		"sessionId": "s-2",
		"status": "INCOMING_CREATED",
		"customerId": "alice@example.com",
		"merchantId": "store@example.com",
		"charge": {"amountMinorUnits": "1000"}
	}`))
	require.NoError(t, err)

	_, err = o.RequestAuthorization(ctx, incoming)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))
	assert.Equal(t, 0, n.totalCalls())
}

func TestDecodeContextRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeContext([]byte(`{"version":99}`))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))

	_, err = DecodeContext([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))
}

// Two sessions for different participant pairs must not leak state into
// each other: one failing does not affect the other's outcome.
func TestConcurrentSessionIsolation(t *testing.T) {
	n := newTestNetwork(t)
	dir := seedDirectory(t, n)
	dir.AddCustomer(&types.Customer{Account: types.Account{
		ID:         "bob@example.com",
		WalletURL:  n.srv.URL + "/wallets/bob",
		KeyID:      "bob-key-1",
		PrivateKey: testKey(),
		SecretHash: "4321",
	}})
	o := New(dir, Options{Timeout: 5 * time.Second})

	var wg sync.WaitGroup
	var goodCtx *Context
	var goodErr, badErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		goodCtx, goodErr = o.Charge(context.Background(), chargeInput())
	}()
	go func() {
		defer wg.Done()
		in := IdentifyInput{
			CustomerID: "bob@example.com",
			MerchantID: "store@example.com",
			Secret:     "wrong",
			Charge:     types.Charge{AmountMinorUnits: "2000"},
		}
		_, badErr = o.Charge(context.Background(), in)
	}()
	wg.Wait()

	require.NoError(t, goodErr)
	assert.Equal(t, types.StatusConsentPending, goodCtx.Status)

	require.Error(t, badErr)
	assert.True(t, types.IsCode(badErr, types.CodeAuthorization))
}

func TestFailedOutgoingPaymentSurfaces(t *testing.T) {
	n := newTestNetwork(t)
	n.outgoingHandler = func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.OutgoingPayment{ID: "op-bad", Failed: true})
	}

	o := newTestOrchestrator(t, n)
	pending, err := o.Charge(context.Background(), chargeInput())
	require.NoError(t, err)

	n.setConsented(true)

	_, err = o.Finalize(context.Background(), pending)
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeProtocol, e.Code)
	assert.Equal(t, StepFinalize, e.Step)
}
