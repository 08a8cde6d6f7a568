package dto

type VisitorCityRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// VisitorCityResponse tells the client where the chosen city lives
type VisitorCityResponse struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Redirect string `json:"redirect"`
}

type SupportOnlyRequest struct {
	Enabled bool `json:"enabled"`
}
