package server

import (
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledgererr"
	"github.com/aman-zulfiqar/redz-ledger/internal/store"
	"github.com/aman-zulfiqar/redz-ledger/internal/txn"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ErrorJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func ErrorJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 429, etc.)
		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps a ledger error kind to an HTTP status.
func statusFor(kind ledgererr.Kind) int {
	switch kind {
	case ledgererr.KindValidation:
		return http.StatusBadRequest
	case ledgererr.KindBusinessRule, ledgererr.KindArithmetic:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Ledger errors keep their name and code.
func (h *Handlers) fail(c echo.Context, err error) error {
	if le, ok := ledgererr.From(err); ok {
		status := statusFor(le.Kind)
		resp := ErrorResponse{Error: le.Name, Code: status, LedgerCode: le.Code, Kind: le.Kind.String()}
		if h.DevMode {
			resp.Details = err.Error()
		}
		return c.JSON(status, resp)
	}

	switch {
	case errors.Is(err, txn.ErrMalformed), errors.Is(err, txn.ErrBadSignature), errors.Is(err, txn.ErrNoInstructions):
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		return h.err(c, http.StatusNotFound, "account not found", nil)
	case errors.Is(err, store.ErrConflict):
		return h.err(c, http.StatusConflict, "account changed concurrently, resubmit", nil)
	}

	h.Logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Error("request failed")
	return h.err(c, http.StatusInternalServerError, "internal server error", map[string]any{"err": err.Error()})
}

func ledgerOwnerError(key, owner solana.PublicKey) error {
	return ledgererr.Wrap(ledgererr.ErrInvalidAccountOwner, "%s is owned by %s", key, owner)
}
