package dto

import "time"

// WizardData is the form accumulated across the order wizard steps
type WizardData struct {
	Address   string         `json:"address"`
	HouseType string         `json:"house_type"`
	Category  string         `json:"category"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone"`
	TariffID  *int           `json:"tariff_id,omitempty"`
	Routers   map[string]int `json:"routers,omitempty"`
	OwnRouter bool           `json:"own_router"`
	TVBoxes   map[string]int `json:"tv_boxes,omitempty"`
	OwnTVBox  bool           `json:"own_tv_box"`
	SlotID    string         `json:"slot_id,omitempty"`
	Consent   bool           `json:"consent"`
	Comment   string         `json:"comment,omitempty"`
}

// WizardState is persisted in the key-value store between steps
type WizardState struct {
	ID        string     `json:"id"`
	CitySlug  string     `json:"city_slug"`
	Step      int        `json:"step"`
	Data      WizardData `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type WizardStartRequest struct {
	City     string `json:"city" validate:"required,max=100"`
	Category string `json:"category,omitempty" validate:"omitempty,category_id"`
}

// WizardStepRequest carries the fields of the current step. Nil fields are left untouched.
type WizardStepRequest struct {
	Address   *string        `json:"address,omitempty"`
	HouseType *string        `json:"house_type,omitempty"`
	Category  *string        `json:"category,omitempty"`
	Name      *string        `json:"name,omitempty"`
	Phone     *string        `json:"phone,omitempty"`
	TariffID  *int           `json:"tariff_id,omitempty"`
	Routers   map[string]int `json:"routers,omitempty"`
	OwnRouter *bool          `json:"own_router,omitempty"`
	TVBoxes   map[string]int `json:"tv_boxes,omitempty"`
	OwnTVBox  *bool          `json:"own_tv_box,omitempty"`
	SlotID    *string        `json:"slot_id,omitempty"`
	Consent   *bool          `json:"consent,omitempty"`
	Comment   *string        `json:"comment,omitempty"`
}

type EquipmentItem struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Rental   int    `json:"rental"`
	Purchase int    `json:"purchase"`
}

type TimeSlot struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

type WizardTotals struct {
	Monthly int `json:"monthly"`
	OneTime int `json:"one_time"`
}

// WizardResponse is the state plus whatever the current step needs to render
type WizardResponse struct {
	State      WizardState       `json:"state"`
	Errors     map[string]string `json:"errors,omitempty"`
	Tariffs    []Tariff          `json:"tariffs,omitempty"`
	Routers    []EquipmentItem   `json:"routers,omitempty"`
	TVBoxes    []EquipmentItem   `json:"tv_boxes,omitempty"`
	Slots      []TimeSlot        `json:"slots,omitempty"`
	TVRequired bool              `json:"tv_required"`
	Totals     WizardTotals      `json:"totals"`
}

type WizardSubmitResponse struct {
	LeadID   string       `json:"lead_id"`
	Redirect string       `json:"redirect"`
	Totals   WizardTotals `json:"totals"`
}
