// Package dto
package dto

import "time"

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,min=1,max=100"`
}

type AdminSessionDTO struct {
	AccessToken string `json:"access_token" example:"jwt"`
	TokenType   string `json:"token_type" example:"Bearer"`
	ExpiresIn   int    `json:"expires_in" example:"43200"`
	CreatedAt   string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

type AdminLoginResponse struct {
	Username string          `json:"username"`
	Session  AdminSessionDTO `json:"session"`
}

// AdminSession is the server-side record behind an admin token
type AdminSession struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	BackendToken string    `json:"backend_token"`
	IPAddress    string    `json:"ip_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TariffRef addresses one tariff inside a city service
type TariffRef struct {
	City    string `json:"city" validate:"required,max=100"`
	Service string `json:"service" validate:"required,category_id"`
	ID      int    `json:"id" validate:"required,gt=0"`
}

type AdminMassDeleteRequest struct {
	Items []TariffRef `json:"items" validate:"required,min=1,dive"`
}

type AdminMassHideRequest struct {
	Items  []TariffRef `json:"items" validate:"required,min=1,dive"`
	Hidden bool        `json:"hidden"`
}

// TariffPatch is a partial tariff update forwarded as-is to the admin backend
type TariffPatch struct {
	Name               *string  `json:"name,omitempty"`
	Type               *string  `json:"type,omitempty"`
	Price              *int     `json:"price,omitempty"`
	DiscountPrice      *int     `json:"discountPrice,omitempty"`
	DiscountPeriod     *string  `json:"discountPeriod,omitempty"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
	Speed              *int     `json:"speed,omitempty"`
	TVChannels         *int     `json:"tvChannels,omitempty"`
	MobileData         *int     `json:"mobileData,omitempty"`
	MobileMinutes      *int     `json:"mobileMinutes,omitempty"`
	Features           []string `json:"features,omitempty"`
	IsHit              *bool    `json:"isHit,omitempty"`
	Hidden             *bool    `json:"hidden,omitempty"`
}

// AdminTariffsResponse is the full dataset returned after every admin read or write
type AdminTariffsResponse struct {
	Cities       []CityData `json:"cities"`
	TotalCities  int        `json:"total_cities"`
	TotalTariffs int        `json:"total_tariffs"`
	HiddenCount  int        `json:"hidden_count"`
}
