package middleware

import (
	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/gofiber/fiber/v3"
)

const visitorLocal = "visitor"

// VisitorContext is what the storefront knows about the visitor from their cookies
type VisitorContext struct {
	SupportOnly bool
	CityName    string
}

func (v VisitorContext) DTO() dto.VisitorDTO {
	return dto.VisitorDTO{
		SupportOnly:  v.SupportOnly,
		ShowOrderCTA: !v.SupportOnly,
		CityName:     v.CityName,
	}
}

// ReadVisitor builds the visitor context from request cookies
func ReadVisitor(c fiber.Ctx) VisitorContext {
	v := VisitorContext{
		SupportOnly: c.Cookies(utils.SupportOnlyCookie) == "true",
	}
	if raw := c.Cookies(utils.UserCityCookie); raw != "" {
		v.CityName = utils.DecodeCityCookie(raw)
	}
	return v
}

// Visitor stores the VisitorContext of each request in locals
func Visitor() fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Locals(visitorLocal, ReadVisitor(c))
		return c.Next()
	}
}

// GetVisitor returns the request's VisitorContext, reading cookies when the middleware did not run
func GetVisitor(c fiber.Ctx) VisitorContext {
	if v, ok := c.Locals(visitorLocal).(VisitorContext); ok {
		return v
	}
	return ReadVisitor(c)
}
