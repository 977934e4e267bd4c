package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/constants"
	"github.com/aman-zulfiqar/redz-ledger/internal/events"
	"github.com/aman-zulfiqar/redz-ledger/internal/flags"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/aman-zulfiqar/redz-ledger/internal/processor"
	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/aman-zulfiqar/redz-ledger/internal/txn"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Processor *processor.Processor // Executes submitted transactions
	Store     store.AccountStore   // Account reads
	Events    *events.Publisher    // Recent event history (optional)
	Flags     *flags.Store         // Redis-backed policy flags (optional)
	DevMode   bool                 // Enable detailed error responses in development
	Logger    *logrus.Logger       // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health reports whether the account store is reachable
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		return h.err(c, http.StatusServiceUnavailable, "store unavailable", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, HealthResponse{OK: true, ProgramID: h.Processor.ProgramID()})
}

// SubmitTransaction verifies and executes a signed transaction
func (h *Handlers) SubmitTransaction(c echo.Context) error {
	var req TransactionRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Transaction = strings.TrimSpace(req.Transaction)
	if req.Transaction == "" {
		return h.err(c, http.StatusBadRequest, "transaction is required", map[string]any{"transaction": "required"})
	}
	if len(req.Transaction) > base64.StdEncoding.EncodedLen(constants.MaxTransactionSize) {
		return h.err(c, http.StatusRequestEntityTooLarge, "transaction too large", map[string]any{"max_bytes": constants.MaxTransactionSize})
	}

	env, err := txn.Parse(req.Transaction, h.Processor.ProgramID())
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Processor.Process(ctx, env.Signature, env.Instructions)
	if err != nil {
		return h.fail(c, err)
	}

	accounts := make(map[string]AccountResponse, len(res.Accounts))
	for key, acct := range res.Accounts {
		accounts[key.String()] = accountResponse(key, acct, "base64")
	}
	return c.JSON(http.StatusOK, TransactionResponse{
		Signature: res.Signature,
		Timestamp: res.Timestamp,
		Skipped:   env.Skipped,
		Events:    res.Events,
		Accounts:  accounts,
	})
}

// Account returns the raw bytes of any stored account
// Accepts encoding query parameter (base64 or base58, default base64)
func (h *Handlers) Account(c echo.Context) error {
	key, ok := h.address(c)
	if !ok {
		return nil
	}
	encoding := c.QueryParam("encoding")
	if encoding == "" {
		encoding = "base64"
	}
	if encoding != "base64" && encoding != "base58" {
		return h.err(c, http.StatusBadRequest, "invalid encoding", map[string]any{"encoding": "must be base64 or base58"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	acct, err := h.Store.Get(ctx, key)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, accountResponse(key, acct, encoding))
}

func (h *Handlers) Pool(c echo.Context) error {
	return h.decoded(c, func(data []byte) (any, error) { return ledger.DecodePool(data) })
}

func (h *Handlers) Launch(c echo.Context) error {
	return h.decoded(c, func(data []byte) (any, error) { return ledger.DecodeLaunch(data) })
}

func (h *Handlers) Contribution(c echo.Context) error {
	return h.decoded(c, func(data []byte) (any, error) { return ledger.DecodeContribution(data) })
}

// Config returns the global configuration account
func (h *Handlers) Config(c echo.Context) error {
	addr, _, err := ledger.FindConfigAddress(h.Processor.ProgramID())
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	cfg, err := h.loadProgramAccount(ctx, addr)
	if err != nil {
		return h.fail(c, err)
	}
	out, err := ledger.DecodeConfig(cfg.Data)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// RecentEvents returns the most recent ledger events with optional limit parameter
// Accepts limit query parameter (default: 50, range: 1-100)
func (h *Handlers) RecentEvents(c echo.Context) error {
	if h.Events == nil {
		return h.err(c, http.StatusServiceUnavailable, "event history is not configured", nil)
	}

	limit := 50
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > constants.MaxRecentEvents {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Events.Recent(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get events", nil)
	}
	return c.JSON(http.StatusOK, EventsResponse{Items: items})
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	h.Logger.WithFields(logrus.Fields{"key": out.Key, "value": out.Value}).Info("flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	h.Logger.WithFields(logrus.Fields{"key": out.Key, "value": out.Value}).Info("flag updated")
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) FlagsList(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	if h.Flags == nil {
		return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
	}
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// address parses the :address path parameter, writing a 400 on failure.
func (h *Handlers) address(c echo.Context) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(c.Param("address")))
	if err != nil {
		_ = h.err(c, http.StatusBadRequest, "invalid address", map[string]any{"address": "must be base58 public key"})
		return solana.PublicKey{}, false
	}
	return key, true
}

func (h *Handlers) decoded(c echo.Context, decode func([]byte) (any, error)) error {
	key, ok := h.address(c)
	if !ok {
		return nil
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	acct, err := h.loadProgramAccount(ctx, key)
	if err != nil {
		return h.fail(c, err)
	}
	out, err := decode(acct.Data)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// loadProgramAccount reads an account and checks the ledger program owns it.
func (h *Handlers) loadProgramAccount(ctx context.Context, key solana.PublicKey) (*store.Account, error) {
	acct, err := h.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(h.Processor.ProgramID()) {
		return nil, ledgerOwnerError(key, acct.Owner)
	}
	return acct, nil
}

func accountResponse(key solana.PublicKey, acct *store.Account, encoding string) AccountResponse {
	var data string
	if encoding == "base58" {
		data = base58.Encode(acct.Data)
	} else {
		data = base64.StdEncoding.EncodeToString(acct.Data)
	}
	return AccountResponse{
		Address:  key,
		Owner:    acct.Owner,
		Encoding: encoding,
		Data:     data,
		Size:     len(acct.Data),
	}
}
