package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mediconnect-health/mediconnect-backend/internal/services"
)

// USSDHandler handles requests from the USSD telco gateway
type USSDHandler struct {
	ussdService *services.USSDService
}

// NewUSSDHandler creates a new USSD handler
func NewUSSDHandler(ussdService *services.USSDService) *USSDHandler {
	return &USSDHandler{
		ussdService: ussdService,
	}
}

// GatewayPayload represents the request the gateway sends for every keystroke
// round trip. text carries the full *-delimited digit history, not just the
// newest input.
type GatewayPayload struct {
	SessionID   string `form:"sessionId" json:"sessionId"`
	ServiceCode string `form:"serviceCode" json:"serviceCode"`
	PhoneNumber string `form:"phoneNumber" json:"phoneNumber"`
	Text        string `form:"text" json:"text"`
}

// HandleRequest processes a gateway round trip. The response body is a bare
// "CON ..."/"END ..." string with Content-Type text/plain; the gateway reads
// only the body text, so even validation failures go out as 200 plain text.
func (h *USSDHandler) HandleRequest(c *fiber.Ctx) error {
	var payload GatewayPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing USSD request: %v", err)
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
		return c.SendString("END Invalid request parameters")
	}

	log.Printf("📞 USSD request session=%s phone=%s text=%q", payload.SessionID, payload.PhoneNumber, payload.Text)

	if payload.SessionID == "" || payload.PhoneNumber == "" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
		return c.SendString("END Invalid request parameters")
	}

	result := h.ussdService.HandleRequest(payload.SessionID, payload.PhoneNumber, payload.Text)

	// A terminal response closes the dialog; drop the session so a reused
	// session id starts a fresh dialog
	if !result.Continue {
		h.ussdService.Sessions().Clear(payload.SessionID)
	}

	log.Printf("📤 USSD response session=%s continue=%v", payload.SessionID, result.Continue)

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
	return c.SendString(result.Response)
}

// HandleCallback acknowledges out-of-band gateway callbacks (delivery
// receipts); these are not part of the dialog state machine
func (h *USSDHandler) HandleCallback(c *fiber.Ctx) error {
	log.Printf("USSD callback: %s", c.Body())
	return c.JSON(fiber.Map{
		"status": "success",
	})
}

// HealthCheck reports liveness of the USSD service
func (h *USSDHandler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "active",
		"service":   "USSD MediConnect",
		"sessions":  h.ussdService.Sessions().ActiveCount(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
