package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	x402 "github.com/compusophy-bot/tempo-x402"
)

// GinMiddleware adapts Gate to gin.HandlerFunc, settling through the same
// Settler before letting the chain proceed.
func (g *Gate) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := g.logger

		body, err := BuildPaymentRequiredBody(g.chain, g.route)
		if err != nil {
			logger.Error("invalid route payment config", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}
		requirements := body.Accepts[0]

		paymentHeader := c.GetHeader("X-PAYMENT")
		if paymentHeader == "" {
			logger.Info("no payment header provided", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusPaymentRequired, body)
			return
		}

		payload, err := decodePaymentHeader(paymentHeader)
		if err != nil {
			logger.Warn("malformed payment header", "error", err)
			c.AbortWithStatusJSON(http.StatusPaymentRequired, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), facilitatorCallTimeout)
		defer cancel()

		logger.Info("settling payment", "payer", payload.Payload.From)
		settleResp, err := g.settler.Settle(ctx, payload, requirements)
		if err != nil {
			if errors.Is(err, x402.ErrFacilitatorAuth) {
				logger.Error("facilitator auth misconfigured", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "facilitator auth misconfigured"})
				return
			}
			logger.Error("facilitator unreachable", "error", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "facilitator unreachable"})
			return
		}
		if !settleResp.Success {
			logger.Warn("settlement unsuccessful", "reason", settleResp.ErrorReason)
			failed := *body
			failed.Description = settleResp.ErrorReason
			c.AbortWithStatusJSON(http.StatusPaymentRequired, failed)
			return
		}

		logger.Info("payment settled", "payer", settleResp.Payer, "transaction", settleResp.Transaction)
		if err := addPaymentResponseHeader(c.Writer, settleResp); err != nil {
			logger.Warn("failed to add payment response header", "error", err)
		}
		// Legacy alias some clients still look for.
		if resp := c.Writer.Header().Get("X-PAYMENT-RESPONSE"); resp != "" {
			c.Writer.Header().Set("payment-response", resp)
		}

		c.Set("x402_payment", settleResp.Payer)
		c.Next()
	}
}
