package utils

import "github.com/gofiber/fiber/v2"

// Success writes the standard response envelope. Every handler except the
// standalone provisioning route uses it.
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// Error writes the envelope's failure form with a user-facing message.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Paginated wraps a list response with page metadata for the back-office
// tables.
func Paginated(c *fiber.Ctx, data interface{}, page, limit int, total int64) error {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"pagination": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": pages,
		},
	})
}
