package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lucassmelendez/ct-fastapi/internal/bcentral"
	"github.com/lucassmelendez/ct-fastapi/internal/herd"
	"github.com/lucassmelendez/ct-fastapi/internal/ledger"
	"github.com/lucassmelendez/ct-fastapi/internal/payments"
	"github.com/lucassmelendez/ct-fastapi/internal/webpay"
)

// Machine-readable error kinds returned in error bodies.
const (
	kindValidation          = "validation_error"
	kindTransactionNotFound = "transaction_not_found"
	kindSeriesNotFound      = "series_not_found"
	kindCowNotFound         = "cow_not_found"
	kindDuplicateBuyOrder   = "duplicate_buy_order"
	kindRefundNotAllowed    = "refund_not_allowed"
	kindInvalidDateRange    = "invalid_date_range"
	kindProviderRejected    = "provider_rejected"
	kindProviderUnreachable = "provider_unreachable"
	kindInternal            = "internal_error"
)

// respondError maps a domain error onto an HTTP status and a structured
// body. Unknown errors become a generic 500 with no internal detail.
func respondError(c *gin.Context, err error) {
	status, kind := classify(err)

	message := err.Error()
	if kind == kindInternal {
		log.Printf("[web] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "internal server error"
	}

	c.JSON(status, gin.H{
		"success": false,
		"kind":    kind,
		"error":   message,
	})
}

// respondValidation reports a request-shape problem before any provider or
// store call has been made.
func respondValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"kind":    kindValidation,
		"error":   message,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, payments.ErrInvalidAmount),
		errors.Is(err, webpay.ErrValidation),
		errors.Is(err, bcentral.ErrValidation):
		return http.StatusBadRequest, kindValidation
	case errors.Is(err, bcentral.ErrInvalidDateRange):
		return http.StatusBadRequest, kindInvalidDateRange
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return http.StatusNotFound, kindTransactionNotFound
	case errors.Is(err, bcentral.ErrSeriesNotFound):
		return http.StatusNotFound, kindSeriesNotFound
	case errors.Is(err, herd.ErrCowNotFound):
		return http.StatusNotFound, kindCowNotFound
	case errors.Is(err, ledger.ErrDuplicateBuyOrder), errors.Is(err, ledger.ErrDuplicateToken):
		return http.StatusConflict, kindDuplicateBuyOrder
	case errors.Is(err, payments.ErrRefundNotAllowed):
		return http.StatusConflict, kindRefundNotAllowed
	case errors.Is(err, webpay.ErrProviderRejected), errors.Is(err, bcentral.ErrProviderRejected):
		return http.StatusBadGateway, kindProviderRejected
	case errors.Is(err, webpay.ErrProviderUnreachable), errors.Is(err, bcentral.ErrProviderUnreachable):
		return http.StatusInternalServerError, kindProviderUnreachable
	default:
		return http.StatusInternalServerError, kindInternal
	}
}
