package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/amm"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/labstack/echo/v4"
)

const defaultSlippageBps = 50

// Quote prices a swap against the pool's current reserves without executing it.
// Query parameters: amountIn (required), aToB (default true), slippageBps (default 50).
func (h *Handlers) Quote(c echo.Context) error {
	key, ok := h.address(c)
	if !ok {
		return nil
	}

	amountStr := strings.TrimSpace(c.QueryParam("amountIn"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amountIn", map[string]any{"amountIn": "required"})
	}
	amountIn, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid amountIn", map[string]any{"amountIn": "must be uint64"})
	}

	aToB := true
	if v := strings.TrimSpace(c.QueryParam("aToB")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid aToB", map[string]any{"aToB": "must be boolean"})
		}
		aToB = b
	}

	slippageBps := uint16(defaultSlippageBps)
	if v := strings.TrimSpace(c.QueryParam("slippageBps")); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil || n > amm.BpsDenominator {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "must be 0-10000"})
		}
		slippageBps = uint16(n)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	acct, err := h.loadProgramAccount(ctx, key)
	if err != nil {
		return h.fail(c, err)
	}
	pool, err := ledger.DecodePool(acct.Data)
	if err != nil {
		return h.fail(c, err)
	}

	resp := QuoteResponse{Pool: key, FeeRateBps: pool.FeeRateBps}
	reserveIn, reserveOut := pool.TokenAReserve, pool.TokenBReserve
	resp.InputMint, resp.OutputMint = pool.TokenAMint, pool.TokenBMint
	if !aToB {
		reserveIn, reserveOut = reserveOut, reserveIn
		resp.InputMint, resp.OutputMint = resp.OutputMint, resp.InputMint
	}

	q, err := amm.NewQuote(amountIn, reserveIn, reserveOut, pool.FeeRateBps, slippageBps)
	if err != nil {
		return h.fail(c, err)
	}
	resp.Quote = q
	return c.JSON(http.StatusOK, resp)
}
