package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/payhole/payments/internal/application/payment/blockchain"
	sharedConfig "github.com/payhole/payments/internal/shared/config"
	"github.com/payhole/payments/internal/shared/logger"
)

const (
	// Default bound on the getTransaction round trip
	solanaRequestTimeout = 10 * time.Second
	// Maximum response body size for the RPC (1MB)
	maxBlockchainResponseSize = 1 << 20
	// JSON-RPC request id sent with every call
	rpcRequestID = "payhole-payments"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type getTransactionResponse struct {
	Result *solanaTransaction `json:"result"`
	Error  *rpcError          `json:"error"`
}

type solanaTransaction struct {
	Slot uint64 `json:"slot"`
	Meta *struct {
		Err               json.RawMessage `json:"err"`
		PreTokenBalances  []tokenBalance  `json:"preTokenBalances"`
		PostTokenBalances []tokenBalance  `json:"postTokenBalances"`
	} `json:"meta"`
	Transaction *struct {
		Message struct {
			AccountKeys []accountKey `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

// accountKey accepts both encodings the RPC uses for account keys: a bare
// base58 string, or a parsed object carrying a pubkey field.
type accountKey string

func (k *accountKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = accountKey(s)
		return nil
	}

	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid account key: %w", err)
	}
	*k = accountKey(obj.Pubkey)
	return nil
}

type tokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner"`
	UITokenAmount uiTokenAmount `json:"uiTokenAmount"`
}

type uiTokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       *int     `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// raw returns the balance in base units. The integer amount field is
// preferred; the ui fields are converted with the mint decimals. An entry that
// reports different decimals than the configured mint is rejected.
func (a uiTokenAmount) raw(decimals int) (int64, error) {
	if a.Decimals != nil && *a.Decimals != decimals {
		return 0, fmt.Errorf("token amount has %d decimals, expected %d", *a.Decimals, decimals)
	}

	if a.Amount != "" {
		v, err := strconv.ParseInt(a.Amount, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid token amount %q: %w", a.Amount, err)
		}
		return v, nil
	}

	if a.UIAmountString != "" {
		f, err := strconv.ParseFloat(a.UIAmountString, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid token amount %q: %w", a.UIAmountString, err)
		}
		return blockchain.ToRawAmount(f, decimals), nil
	}

	if a.UIAmount != nil && !math.IsNaN(*a.UIAmount) {
		return blockchain.ToRawAmount(*a.UIAmount, decimals), nil
	}

	return 0, errors.New("token amount missing")
}

// SolanaVerifier confirms SPL token payments into the treasury by fetching the
// transaction from a Solana JSON-RPC endpoint.
type SolanaVerifier struct {
	rpcURL     string
	mint       string
	treasury   string
	decimals   int
	minRaw     int64
	timeout    time.Duration
	httpClient *http.Client
	logger     logger.Interface
}

var _ blockchain.PaymentVerifier = (*SolanaVerifier)(nil)

// ErrMinimumBelowBaseUnit is returned when the configured minimum payment
// rounds to zero base units of the mint.
var ErrMinimumBelowBaseUnit = errors.New("minimum payment amount is below one base unit")

// NewSolanaVerifier creates a verifier from the solana config section.
// A nil httpClient uses a default client.
func NewSolanaVerifier(cfg sharedConfig.SolanaConfig, httpClient *http.Client, logger logger.Interface) (*SolanaVerifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.RPCTimeout
	if timeout <= 0 {
		timeout = solanaRequestTimeout
	}

	minRaw := cfg.MinPaymentRaw()
	if minRaw <= 0 {
		return nil, fmt.Errorf("%w: %v with %d decimals", ErrMinimumBelowBaseUnit, cfg.MinPaymentAmount, cfg.TokenDecimals)
	}

	return &SolanaVerifier{
		rpcURL:     cfg.RPCURL,
		mint:       cfg.USDCMint,
		treasury:   cfg.TreasuryWallet,
		decimals:   cfg.TokenDecimals,
		minRaw:     minRaw,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Verify fetches the transaction once, with no retries, and accepts it only
// if the treasury received at least the minimum and the wallet was debited
// at least the minimum, both in the configured mint.
func (v *SolanaVerifier) Verify(ctx context.Context, wallet, signature string) (*blockchain.PaymentVerificationResult, error) {
	tx, err := v.fetchTransaction(ctx, signature)
	if err != nil {
		return nil, err
	}

	if tx.Meta != nil && len(tx.Meta.Err) > 0 && !bytes.Equal(bytes.TrimSpace(tx.Meta.Err), []byte("null")) {
		return nil, blockchain.NewVerificationError(blockchain.ReasonFailedOnChain, nil, "transaction failed on-chain")
	}

	if !v.hasAccount(tx, wallet) {
		return nil, blockchain.NewVerificationError(blockchain.ReasonWalletNotInTransaction, nil, "wallet address not present in transaction")
	}

	var pre, post []tokenBalance
	if tx.Meta != nil {
		pre, post = tx.Meta.PreTokenBalances, tx.Meta.PostTokenBalances
	}

	treasuryPre, treasuryPreSeen, err := v.ownerBalance(pre, v.treasury)
	if err != nil {
		return nil, v.malformed(err)
	}
	treasuryPost, treasuryPostSeen, err := v.ownerBalance(post, v.treasury)
	if err != nil {
		return nil, v.malformed(err)
	}
	if !treasuryPreSeen && !treasuryPostSeen {
		return nil, blockchain.NewVerificationError(blockchain.ReasonTreasuryNotInBalances, nil,
			"treasury account not present in transaction token balances")
	}

	walletPre, _, err := v.ownerBalance(pre, wallet)
	if err != nil {
		return nil, v.malformed(err)
	}
	walletPost, _, err := v.ownerBalance(post, wallet)
	if err != nil {
		return nil, v.malformed(err)
	}

	treasuryDelta := treasuryPost - treasuryPre
	walletDelta := walletPost - walletPre

	if treasuryDelta < v.minRaw {
		return nil, blockchain.NewVerificationError(blockchain.ReasonInsufficientReceipt, nil,
			"insufficient treasury receipt: received %s, required %s", v.format(treasuryDelta), v.format(v.minRaw))
	}
	if walletDelta > -v.minRaw {
		return nil, blockchain.NewVerificationError(blockchain.ReasonInsufficientDebit, nil,
			"insufficient payer debit: wallet sent %s, required %s", v.format(-walletDelta), v.format(v.minRaw))
	}

	result := &blockchain.PaymentVerificationResult{
		Slot:      tx.Slot,
		Signature: signature,
		Amount:    blockchain.FromRawAmount(treasuryDelta, v.decimals),
		AmountRaw: treasuryDelta,
		Mint:      v.mint,
	}

	v.logger.Infow("verified solana payment",
		"wallet", wallet,
		"signature", signature,
		"slot", tx.Slot,
		"amount_raw", treasuryDelta,
		"wallet_delta_raw", walletDelta,
	)

	return result, nil
}

// fetchTransaction performs the single bounded getTransaction call.
func (v *SolanaVerifier) fetchTransaction(ctx context.Context, signature string) (*solanaTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      rpcRequestID,
		Method:  "getTransaction",
		Params: []any{
			signature,
			map[string]any{
				"commitment":                     "confirmed",
				"encoding":                       "jsonParsed",
				"maxSupportedTransactionVersion": 0,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode getTransaction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, blockchain.NewVerificationError(blockchain.ReasonRPCUnavailable, err,
				"RPC request timed out after %s", v.timeout)
		}
		return nil, blockchain.NewVerificationError(blockchain.ReasonRPCUnavailable, err, "RPC request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, blockchain.NewVerificationError(blockchain.ReasonRPCUnavailable, nil,
			"RPC request failed with status %d", resp.StatusCode)
	}

	var payload getTransactionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBlockchainResponseSize)).Decode(&payload); err != nil {
		return nil, v.malformed(err)
	}

	if payload.Error != nil {
		msg := payload.Error.Message
		if msg == "" {
			msg = "RPC returned an error"
		}
		return nil, blockchain.NewVerificationError(blockchain.ReasonRPCError, nil, "%s", msg)
	}

	if payload.Result == nil {
		return nil, blockchain.NewVerificationError(blockchain.ReasonNotFound, nil, "transaction not found")
	}

	return payload.Result, nil
}

func (v *SolanaVerifier) hasAccount(tx *solanaTransaction, wallet string) bool {
	if tx.Transaction == nil {
		return false
	}
	for _, k := range tx.Transaction.Message.AccountKeys {
		if string(k) == wallet {
			return true
		}
	}
	return false
}

// ownerBalance sums the configured mint's balances held by owner. seen is
// false when owner has no entry for the mint.
func (v *SolanaVerifier) ownerBalance(balances []tokenBalance, owner string) (total int64, seen bool, err error) {
	for _, b := range balances {
		if b.Mint != v.mint || b.Owner != owner {
			continue
		}
		raw, err := b.UITokenAmount.raw(v.decimals)
		if err != nil {
			return 0, false, fmt.Errorf("account index %d: %w", b.AccountIndex, err)
		}
		total += raw
		seen = true
	}
	return total, seen, nil
}

func (v *SolanaVerifier) malformed(err error) *blockchain.VerificationError {
	return blockchain.NewVerificationError(blockchain.ReasonMalformedResponse, err, "unable to read RPC response: %v", err)
}

func (v *SolanaVerifier) format(raw int64) string {
	return strconv.FormatFloat(blockchain.FromRawAmount(raw, v.decimals), 'f', -1, 64)
}
