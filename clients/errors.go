package clients

const (
	// -----------------------------
	// WALLET DISCOVERY
	// -----------------------------
	ErrWalletFetchFailed   = "wallet_fetch_failed"
	ErrWalletInvalidRecord = "wallet_invalid_record"

	// -----------------------------
	// GRANT REQUEST
	// -----------------------------
	ErrGrantRequestFailed   = "grant_request_failed"
	ErrGrantMissingToken    = "grant_missing_access_token"
	ErrGrantMissingInteract = "grant_missing_interact_redirect"
	ErrGrantMissingContinue = "grant_missing_continuation"

	// -----------------------------
	// GRANT CONTINUATION
	// -----------------------------
	ErrGrantContinuePending = "grant_continuation_pending"
	ErrGrantContinueFailed  = "grant_continuation_failed"

	// -----------------------------
	// RESOURCE CREATION
	// -----------------------------
	ErrIncomingCreateFailed = "incoming_payment_create_failed"
	ErrQuoteCreateFailed    = "quote_create_failed"
	ErrOutgoingCreateFailed = "outgoing_payment_create_failed"

	// -----------------------------
	// KEY MATERIAL
	// -----------------------------
	ErrInvalidPrivateKey = "invalid_private_key"
)
