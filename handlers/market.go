// handlers/market.go
package handlers

import (
	"strings"

	"vaulty/services"

	"github.com/gofiber/fiber/v2"
)

// GetMarketQuotes proxies live asset prices.
// GET /api/market/quotes?symbols=bitcoin,ethereum
func GetMarketQuotes(c *fiber.Ctx) error {
	raw := c.Query("symbols")
	if raw == "" {
		return c.Status(400).JSON(fiber.Map{"error": "symbols query parameter required"})
	}

	symbols := []string{}
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 || len(symbols) > 25 {
		return c.Status(400).JSON(fiber.Map{"error": "Provide between 1 and 25 symbols"})
	}

	quotes, err := services.GetMarketClient().GetQuotes(symbols)
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": "Market data unavailable"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"quotes":  quotes,
	})
}
