package dto

import "time"

// LeadRequest is a callback or connection request submitted by a visitor
type LeadRequest struct {
	Type      string `json:"type" validate:"required,max=255"`
	Name      string `json:"name" validate:"required,min=2,max=100"`
	Phone     string `json:"phone" validate:"required,ru_phone"`
	Address   string `json:"address,omitempty" validate:"omitempty,max=500"`
	HouseType string `json:"house_type,omitempty" validate:"omitempty,house_type"`
	CallTime  string `json:"call_time,omitempty" validate:"omitempty,max=100"`
	Comment   string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// Lead is the payload the tariff backend accepts on POST /api/leads
type Lead struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address,omitempty"`
	HouseType string `json:"houseType,omitempty"`
	CallTime  string `json:"callTime,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

type LeadResponse struct {
	LeadID   string `json:"lead_id"`
	Status   string `json:"status"`
	Redirect string `json:"redirect"`
}

// LeadJournalFilter narrows the admin listing of journaled leads
type LeadJournalFilter struct {
	Status    *string
	Phone     *string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// LeadJournalEntry is a journaled lead with its forwarding outcome
type LeadJournalEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address,omitempty"`
	HouseType string    `json:"house_type,omitempty"`
	CallTime  string    `json:"call_time,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CitySlug  string    `json:"city_slug,omitempty"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LeadJournalResponse struct {
	Leads  []LeadJournalEntry `json:"leads"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
