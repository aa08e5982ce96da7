package web

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lucassmelendez/ct-fastapi/internal/ledger"
	"github.com/lucassmelendez/ct-fastapi/internal/payments"
)

type createTransactionRequest struct {
	Amount      int    `json:"amount"`
	Description string `json:"description"`
	BuyOrder    string `json:"buy_order"`
	SessionID   string `json:"session_id"`
	ReturnURL   string `json:"return_url"`
}

type confirmRequest struct {
	TokenWS string `json:"token_ws"`
}

type refundRequest struct {
	Amount int `json:"amount"`
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid JSON body: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		respondValidation(c, "amount must be a positive integer")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" && req.Description != "" {
		// The description doubles as the caller's correlation id.
		sessionID = truncate(req.Description, 61)
	}

	result, err := s.payments.Create(c.Request.Context(), payments.CreateRequest{
		Amount:    req.Amount,
		BuyOrder:  req.BuyOrder,
		SessionID: sessionID,
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleConfirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "invalid JSON body: "+err.Error())
		return
	}
	if req.TokenWS == "" {
		respondValidation(c, "token_ws is required")
		return
	}

	tx, err := s.payments.Confirm(c.Request.Context(), req.TokenWS)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, confirmBody(tx))
}

func (s *Server) handleTransactionStatus(c *gin.Context) {
	tx, err := s.payments.Status(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) handleRefund(c *gin.Context) {
	var req refundRequest
	// ContentLength is -1 for chunked bodies; only a known-empty body means
	// a full refund.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, "invalid JSON body: "+err.Error())
			return
		}
	}
	if req.Amount < 0 {
		respondValidation(c, "amount must not be negative")
		return
	}

	result, err := s.payments.Refund(c.Request.Context(), c.Param("token"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListTransactions(c *gin.Context) {
	transactions := s.payments.List()
	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// handleReturn is the landing page Webpay redirects the payer's browser to.
// A token_ws parameter means a completed payment attempt; TBK_TOKEN means
// the payer aborted at the gateway.
func (s *Server) handleReturn(c *gin.Context) {
	if aborted := c.Query("TBK_TOKEN"); aborted != "" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(returnPage(
			"Pago anulado", "El pago fue anulado antes de completarse.", "")))
		return
	}

	token := c.Query("token_ws")
	if token == "" {
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(returnPage(
			"Solicitud inválida", "Falta el parámetro token_ws.", "")))
		return
	}

	tx, err := s.payments.Confirm(c.Request.Context(), token)
	if err != nil {
		status, _ := classify(err)
		c.Data(status, "text/html; charset=utf-8", []byte(returnPage(
			"Error al confirmar el pago", err.Error(), "")))
		return
	}

	title := "Pago rechazado"
	if tx.Status == ledger.StatusAuthorized {
		title = "Pago exitoso"
	}
	detail := fmt.Sprintf("Orden %s por $%d CLP: estado %s.", tx.BuyOrder, tx.Amount, tx.Status)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(returnPage(title, detail, tx.Token)))
}

func confirmBody(tx *ledger.Transaction) gin.H {
	body := gin.H{
		"status":    tx.Status,
		"buy_order": tx.BuyOrder,
		"amount":    tx.Amount,
		"token":     tx.Token,
	}
	if tx.ProviderResponse != nil {
		body["authorization_code"] = tx.ProviderResponse.AuthorizationCode
		body["response_code"] = tx.ProviderResponse.ResponseCode
		body["transaction_date"] = tx.ProviderResponse.TransactionDate
	}
	return body
}

func returnPage(title, detail, token string) string {
	tokenLine := ""
	if token != "" {
		tokenLine = fmt.Sprintf("<p><code>%s</code></p>", token)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>%s - CowTracker</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
%s
</body>
</html>`, title, title, detail, tokenLine)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
