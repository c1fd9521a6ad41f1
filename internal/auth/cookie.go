package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SetTokenCookie attaches the signed token to the response. HttpOnly keeps
// the token away from scripts; Secure is environment-dependent since local
// development runs plaintext HTTP.
func SetTokenCookie(c *fiber.Ctx, name, token string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearTokenCookie invalidates the cookie client-side. The token itself
// stays cryptographically valid until natural expiry if replayed.
func ClearTokenCookie(c *fiber.Ctx, name string, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
