package dto

// Tariff is one offer inside a city service. Field names follow the tariff backend.
type Tariff struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	Price              int      `json:"price"`
	DiscountPrice      *int     `json:"discountPrice,omitempty"`
	DiscountPeriod     *string  `json:"discountPeriod,omitempty"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
	Speed              *int     `json:"speed,omitempty"`
	TVChannels         *int     `json:"tvChannels,omitempty"`
	MobileData         *int     `json:"mobileData,omitempty"`
	MobileMinutes      *int     `json:"mobileMinutes,omitempty"`
	Features           []string `json:"features"`
	IsHit              bool     `json:"isHit"`
	Hidden             bool     `json:"hidden"`
}

type CityMeta struct {
	Name     string `json:"name"`
	Region   string `json:"region"`
	Timezone string `json:"timezone,omitempty"`
}

type ServiceMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords,omitempty"`
}

type Service struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Meta        ServiceMeta `json:"meta"`
	Tariffs     []Tariff    `json:"tariffs"`
}

// CityData is a city with its services keyed by category id.
type CityData struct {
	Slug     string             `json:"slug"`
	Meta     CityMeta           `json:"meta"`
	Services map[string]Service `json:"services"`
}

type Area struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

type Region struct {
	Letter string `json:"letter"`
	Areas  []Area `json:"areas"`
}

// CitySummary is the short form returned by the city list endpoint
type CitySummary struct {
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	Region   string   `json:"region"`
	Services []string `json:"services"`
}

type SlugResponse struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Generic   string `json:"generic_slug"`
	Available bool   `json:"available"`
}

type RegionSearchResponse struct {
	Query   string   `json:"query"`
	Regions []Region `json:"regions"`
	Total   int      `json:"total"`
}
