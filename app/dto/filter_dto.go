package dto

// Range is an inclusive [min, max] pair
type Range [2]int

func (r Range) Min() int { return r[0] }
func (r Range) Max() int { return r[1] }

// Contains reports whether v lies within the range, bounds included
func (r Range) Contains(v int) bool {
	return v >= r[0] && v <= r[1]
}

// FilterState holds the sidebar toggles and numeric ranges of a tariff listing
type FilterState struct {
	Internet     bool  `json:"internet"`
	TV           bool  `json:"tv"`
	Mobile       bool  `json:"mobile"`
	OnlineCinema bool  `json:"onlineCinema"`
	GameBonuses  bool  `json:"gameBonuses"`
	Promotions   bool  `json:"promotions"`
	HitsOnly     bool  `json:"hitsOnly"`
	PriceRange   Range `json:"priceRange"`
	SpeedRange   Range `json:"speedRange"`
}

// TariffListResponse is the filtered listing of one city
type TariffListResponse struct {
	City        string      `json:"city"`
	Category    string      `json:"category"`
	Sort        string      `json:"sort"`
	Filters     FilterState `json:"filters"`
	Tariffs     []Tariff    `json:"tariffs"`
	Total       int         `json:"total"`
	PriceBounds Range       `json:"price_bounds"`
	SpeedBounds Range       `json:"speed_bounds"`
}

// VisitorDTO is what page models expose about the visitor
type VisitorDTO struct {
	SupportOnly  bool   `json:"support_only"`
	ShowOrderCTA bool   `json:"show_order_cta"`
	CityName     string `json:"city_name,omitempty"`
}

// PageResponse is the model of a /:city/:service page
type PageResponse struct {
	CitySlug    string             `json:"city_slug"`
	City        CityMeta           `json:"city"`
	ServiceSlug string             `json:"service_slug"`
	Service     ServiceMeta        `json:"service"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Listing     TariffListResponse `json:"listing"`
	Visitor     VisitorDTO         `json:"visitor"`
}
