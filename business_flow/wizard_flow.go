package businessflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Wizard steps
const (
	WizardStepAddress = iota + 1
	WizardStepCategory
	WizardStepContact
	WizardStepTariff
	WizardStepRouters
	WizardStepTVBoxes
	WizardStepSlot
	WizardStepSummary
)

const (
	wizardKeyPrefix   = "wizard:"
	wizardTopTariffs  = 3
	wizardLeadTypeFmt = "Заявка на подключение: %s"
)

// Results recorded in wizard_transitions_total
const (
	transitionAdvanced  = "advanced"
	transitionRejected  = "rejected"
	transitionBack      = "back"
	transitionSubmitted = "submitted"
)

// WizardFlow drives the eight-step order wizard
type WizardFlow interface {
	Start(ctx context.Context, req *dto.WizardStartRequest) (*dto.WizardResponse, error)
	Get(ctx context.Context, id string) (*dto.WizardResponse, error)
	Next(ctx context.Context, id string, req *dto.WizardStepRequest) (*dto.WizardResponse, error)
	Prev(ctx context.Context, id string) (*dto.WizardResponse, error)
	Submit(ctx context.Context, id string, metadata *ClientMetadata) (*dto.WizardSubmitResponse, error)
}

type WizardFlowImpl struct {
	catalog   CatalogFlow
	leads     LeadFlow
	store     services.KVStore
	validator *validator.Validate
	ttl       time.Duration
	location  *time.Location
	now       utils.Clock
}

func NewWizardFlow(
	catalog CatalogFlow,
	leads LeadFlow,
	store services.KVStore,
	v *validator.Validate,
	ttl time.Duration,
	location *time.Location,
) *WizardFlowImpl {
	if v == nil {
		v = utils.NewValidator()
	}
	if ttl <= 0 {
		ttl = utils.WizardStateTTL
	}
	if location == nil {
		location = time.UTC
	}
	return &WizardFlowImpl{
		catalog:   catalog,
		leads:     leads,
		store:     store,
		validator: v,
		ttl:       ttl,
		location:  location,
		now:       utils.SystemClock,
	}
}

// WithClock replaces the wall clock used for slots and timestamps
func (f *WizardFlowImpl) WithClock(clock utils.Clock) *WizardFlowImpl {
	f.now = clock
	return f
}

func (f *WizardFlowImpl) localNow() time.Time {
	return f.now().In(f.location)
}

// TopTariffs ranks a city's tariffs of a category: discounted first, then cheapest effective price
func TopTariffs(city dto.CityData, category string) []dto.Tariff {
	candidates := FilterAndSort(CityTariffs(city), DefaultFilterState(), category, "")
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := HasDiscount(candidates[i]), HasDiscount(candidates[j])
		if di != dj {
			return di
		}
		return EffectivePrice(candidates[i]) < EffectivePrice(candidates[j])
	})
	if len(candidates) > wizardTopTariffs {
		candidates = candidates[:wizardTopTariffs]
	}
	return candidates
}

func findTariff(tariffs []dto.Tariff, id int) (*dto.Tariff, bool) {
	for i := range tariffs {
		if tariffs[i].ID == id {
			return &tariffs[i], true
		}
	}
	return nil, false
}

func (f *WizardFlowImpl) key(id string) string {
	return wizardKeyPrefix + id
}

func (f *WizardFlowImpl) load(ctx context.Context, id string) (*dto.WizardState, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, NewBusinessError("WIZARD_NOT_FOUND", "wizard not found", ErrWizardNotFound)
	}
	state, err := services.GetJSON[dto.WizardState](ctx, f.store, f.key(id))
	if err != nil {
		if errors.Is(err, services.ErrKeyNotFound) {
			return nil, NewBusinessError("WIZARD_NOT_FOUND", "wizard not found or expired", ErrWizardNotFound)
		}
		return nil, NewBusinessError("CACHE_NOT_AVAILABLE", "failed to load wizard", errors.Join(ErrCacheNotAvailable, err))
	}
	return state, nil
}

func (f *WizardFlowImpl) save(ctx context.Context, state *dto.WizardState) error {
	state.UpdatedAt = f.now().UTC()
	if err := services.SetJSON(ctx, f.store, f.key(state.ID), state, f.ttl); err != nil {
		return NewBusinessError("CACHE_NOT_AVAILABLE", "failed to save wizard", errors.Join(ErrCacheNotAvailable, err))
	}
	return nil
}

func (f *WizardFlowImpl) Start(ctx context.Context, req *dto.WizardStartRequest) (*dto.WizardResponse, error) {
	if req == nil {
		return nil, NewBusinessError("INVALID_REQUEST", "request is required", nil)
	}
	if err := f.validator.Struct(req); err != nil {
		return nil, NewValidationError(ErrWizardValidation, utils.ValidationMessages(err))
	}

	city, err := f.catalog.GetCity(ctx, req.City)
	if err != nil {
		return nil, err
	}

	now := f.now().UTC()
	state := &dto.WizardState{
		ID:        uuid.NewString(),
		CitySlug:  city.Slug,
		Step:      WizardStepAddress,
		Data:      dto.WizardData{Category: req.Category},
		CreatedAt: now,
	}
	if err := f.save(ctx, state); err != nil {
		return nil, err
	}
	log.Info().Str("wizard_id", state.ID).Str("city", state.CitySlug).Msg("Order wizard started")
	return f.respond(ctx, state, city), nil
}

func (f *WizardFlowImpl) Get(ctx context.Context, id string) (*dto.WizardResponse, error) {
	state, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.respond(ctx, state, nil), nil
}

// Next merges the step payload and advances when the current step validates.
// The merged data is kept even when validation fails.
func (f *WizardFlowImpl) Next(ctx context.Context, id string, req *dto.WizardStepRequest) (*dto.WizardResponse, error) {
	state, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req != nil {
		applyStepPatch(&state.Data, req)
	}

	var city *dto.CityData
	if state.Step == WizardStepCategory || state.Step == WizardStepTariff {
		loaded, err := f.catalog.GetCity(ctx, state.CitySlug)
		if err != nil {
			log.Warn().Err(err).Str("wizard_id", state.ID).Msg("City lookup failed while validating wizard step")
		} else {
			city = loaded
		}
	}

	fields := f.validateStep(state, city)
	if len(fields) > 0 {
		wizardTransitionsTotal.WithLabelValues(transitionRejected).Inc()
		if err := f.save(ctx, state); err != nil {
			return nil, err
		}
		return nil, NewValidationError(ErrWizardValidation, fields)
	}

	if state.Step < WizardStepSummary {
		state.Step++
	}
	wizardTransitionsTotal.WithLabelValues(transitionAdvanced).Inc()
	if err := f.save(ctx, state); err != nil {
		return nil, err
	}
	return f.respond(ctx, state, city), nil
}

// Prev steps back without validation; step 1 is the floor
func (f *WizardFlowImpl) Prev(ctx context.Context, id string) (*dto.WizardResponse, error) {
	state, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Step > WizardStepAddress {
		state.Step--
	}
	wizardTransitionsTotal.WithLabelValues(transitionBack).Inc()
	if err := f.save(ctx, state); err != nil {
		return nil, err
	}
	return f.respond(ctx, state, nil), nil
}

// Submit sends the order as a lead once every earlier step still validates. The visitor is routed to the completion page
// whatever the backend answers, and the wizard is discarded.
func (f *WizardFlowImpl) Submit(ctx context.Context, id string, metadata *ClientMetadata) (*dto.WizardSubmitResponse, error) {
	state, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.Step != WizardStepSummary {
		return nil, NewBusinessErrorf("WIZARD_NOT_READY", "wizard is on step %d", ErrWizardNotReady, state.Step)
	}
	if !state.Data.Consent {
		return nil, NewValidationError(ErrConsentRequired, map[string]string{"consent": "consent is required"})
	}

	city, err := f.catalog.GetCity(ctx, state.CitySlug)
	if err != nil {
		log.Warn().Err(err).Str("wizard_id", state.ID).Msg("City lookup failed on submit, sending order without tariff details")
		city = nil
	}

	if step, fields := f.revalidate(state, city); len(fields) > 0 {
		state.Step = step
		wizardTransitionsTotal.WithLabelValues(transitionRejected).Inc()
		if err := f.save(ctx, state); err != nil {
			return nil, err
		}
		fields["step"] = fmt.Sprintf("step %d is no longer valid", step)
		return nil, NewValidationError(ErrWizardValidation, fields)
	}

	var tariff *dto.Tariff
	if city != nil && state.Data.TariffID != nil {
		tariff, _ = findTariff(CityTariffs(*city), *state.Data.TariffID)
	}

	totals := computeTotals(tariff, state.Data)
	lead := composeOrderLead(state, tariff, totals)
	leadID := f.leads.Forward(ctx, lead, LeadSourceWizard, state.CitySlug, metadata)

	if err := f.store.Delete(ctx, f.key(state.ID)); err != nil {
		log.Warn().Err(err).Str("wizard_id", state.ID).Msg("Failed to delete submitted wizard")
	}
	wizardTransitionsTotal.WithLabelValues(transitionSubmitted).Inc()

	return &dto.WizardSubmitResponse{
		LeadID:   leadID,
		Redirect: utils.CompletionPath,
		Totals:   totals,
	}, nil
}

// applyStepPatch merges non-nil fields. Equipment counters and the matching
// "own device" flag reset each other; the flag is applied last.
func applyStepPatch(data *dto.WizardData, req *dto.WizardStepRequest) {
	if req.Address != nil {
		data.Address = strings.TrimSpace(*req.Address)
	}
	if req.HouseType != nil {
		data.HouseType = *req.HouseType
	}
	if req.Category != nil && *req.Category != data.Category {
		data.Category = *req.Category
		data.TariffID = nil
		if !categoryIncludesTV(data.Category) {
			data.TVBoxes = nil
			data.OwnTVBox = false
		}
	}
	if req.Name != nil {
		data.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		data.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.TariffID != nil {
		data.TariffID = utils.ToPtr(*req.TariffID)
	}
	if req.Routers != nil {
		data.Routers = req.Routers
		if totalQty(req.Routers) > 0 {
			data.OwnRouter = false
		}
	}
	if req.OwnRouter != nil {
		data.OwnRouter = *req.OwnRouter
		if data.OwnRouter {
			data.Routers = nil
		}
	}
	if req.TVBoxes != nil {
		data.TVBoxes = req.TVBoxes
		if totalQty(req.TVBoxes) > 0 {
			data.OwnTVBox = false
		}
	}
	if req.OwnTVBox != nil {
		data.OwnTVBox = *req.OwnTVBox
		if data.OwnTVBox {
			data.TVBoxes = nil
		}
	}
	if req.SlotID != nil {
		data.SlotID = *req.SlotID
	}
	if req.Consent != nil {
		data.Consent = *req.Consent
	}
	if req.Comment != nil {
		data.Comment = utils.Truncate(strings.TrimSpace(*req.Comment), 1000)
	}
}

type wizardAddressStep struct {
	Address   string `json:"address" validate:"required,min=5,max=500"`
	HouseType string `json:"house_type" validate:"required,house_type"`
}

type wizardCategoryStep struct {
	Category string `json:"category" validate:"required,category_id"`
}

type wizardContactStep struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" validate:"required,ru_phone"`
}

// validateStep returns the field → message map of the current step; empty means valid.
// city may be nil when the catalog is unreachable.
func (f *WizardFlowImpl) validateStep(state *dto.WizardState, city *dto.CityData) map[string]string {
	data := &state.Data
	fields := map[string]string{}

	switch state.Step {
	case WizardStepAddress:
		return f.validateStruct(wizardAddressStep{Address: data.Address, HouseType: data.HouseType})

	case WizardStepCategory:
		if msgs := f.validateStruct(wizardCategoryStep{Category: data.Category}); len(msgs) > 0 {
			return msgs
		}
		if city != nil && len(TopTariffs(*city, data.Category)) == 0 {
			fields["category"] = "no tariffs of this category are offered in " + city.Meta.Name
		}

	case WizardStepContact:
		return f.validateStruct(wizardContactStep{Name: data.Name, Phone: data.Phone})

	case WizardStepTariff:
		switch {
		case data.TariffID == nil:
			fields["tariff_id"] = "tariff_id is required"
		case city == nil:
			fields["tariff_id"] = "tariffs are temporarily unavailable"
		default:
			if _, ok := findTariff(TopTariffs(*city, data.Category), *data.TariffID); !ok {
				fields["tariff_id"] = ErrTariffNotOffered.Error()
			}
		}

	case WizardStepRouters:
		validateEquipment(fields, "routers", routerCatalog, &data.Routers, data.OwnRouter, "own_router")

	case WizardStepTVBoxes:
		if categoryIncludesTV(data.Category) {
			validateEquipment(fields, "tv_boxes", tvBoxCatalog, &data.TVBoxes, data.OwnTVBox, "own_tv_box")
		}

	case WizardStepSlot:
		if data.SlotID == "" {
			fields["slot_id"] = "slot_id is required"
		} else if _, ok := findSlot(GenerateSlots(f.localNow()), data.SlotID); !ok {
			fields["slot_id"] = "the selected slot is no longer available"
		}

	case WizardStepSummary:
		if !data.Consent {
			fields["consent"] = "consent is required"
		}
	}
	return fields
}

// revalidate replays the checks of steps 1-7 on the final data and reports the first failing step.
// Without a city the tariff step only requires a choice.
func (f *WizardFlowImpl) revalidate(state *dto.WizardState, city *dto.CityData) (int, map[string]string) {
	check := *state
	for step := WizardStepAddress; step < WizardStepSummary; step++ {
		check.Step = step
		if step == WizardStepTariff && city == nil {
			if check.Data.TariffID == nil {
				return step, map[string]string{"tariff_id": "tariff_id is required"}
			}
			continue
		}
		if fields := f.validateStep(&check, city); len(fields) > 0 {
			return step, fields
		}
	}
	return 0, nil
}

func (f *WizardFlowImpl) validateStruct(s any) map[string]string {
	if err := f.validator.Struct(s); err != nil {
		return utils.ValidationMessages(err)
	}
	return nil
}

func validateEquipment(fields map[string]string, field string, catalog []dto.EquipmentItem, selection *map[string]int, own bool, ownField string) {
	cleaned, problem := cleanQuantities(catalog, *selection)
	if problem != "" {
		fields[field] = problem
		return
	}
	*selection = cleaned
	if !own && totalQty(cleaned) == 0 {
		fields[field] = fmt.Sprintf("select equipment or set %s", ownField)
	}
}

// respond attaches what the current step needs. city is fetched when nil and needed.
func (f *WizardFlowImpl) respond(ctx context.Context, state *dto.WizardState, city *dto.CityData) *dto.WizardResponse {
	resp := &dto.WizardResponse{
		State:      *state,
		TVRequired: categoryIncludesTV(state.Data.Category),
	}

	needCity := state.Step == WizardStepTariff || state.Data.TariffID != nil
	if needCity && city == nil {
		loaded, err := f.catalog.GetCity(ctx, state.CitySlug)
		if err != nil {
			log.Warn().Err(err).Str("wizard_id", state.ID).Msg("City lookup failed while rendering wizard")
		} else {
			city = loaded
		}
	}

	var tariff *dto.Tariff
	if city != nil && state.Data.TariffID != nil {
		tariff, _ = findTariff(CityTariffs(*city), *state.Data.TariffID)
	}
	resp.Totals = computeTotals(tariff, state.Data)

	switch state.Step {
	case WizardStepTariff:
		if city != nil {
			resp.Tariffs = TopTariffs(*city, state.Data.Category)
		}
	case WizardStepRouters:
		resp.Routers = routerCatalog
	case WizardStepTVBoxes:
		if resp.TVRequired {
			resp.TVBoxes = tvBoxCatalog
		}
	case WizardStepSlot:
		resp.Slots = GenerateSlots(f.localNow())
	}
	return resp
}

// composeOrderLead flattens a finished wizard into one lead
func composeOrderLead(state *dto.WizardState, tariff *dto.Tariff, totals dto.WizardTotals) dto.Lead {
	data := state.Data
	tariffName := "тариф не найден"
	if tariff != nil {
		tariffName = tariff.Name
	} else if data.TariffID != nil {
		tariffName = fmt.Sprintf("тариф #%d", *data.TariffID)
	}

	slotLabel := data.SlotID
	if t, err := time.Parse("2006-01-02T15:04", data.SlotID); err == nil {
		slotLabel = fmt.Sprintf("%s %s-%s", t.Format("02.01.2006"), t.Format("15:04"), t.Add(slotStep).Format("15:04"))
	}

	lines := []string{
		"Город: " + state.CitySlug,
		"Категория: " + CategoryTypeLabel(data.Category),
		"Роутеры: " + describeEquipment(routerCatalog, data.Routers, data.OwnRouter, "свой роутер"),
	}
	if categoryIncludesTV(data.Category) {
		lines = append(lines, "ТВ-приставки: "+describeEquipment(tvBoxCatalog, data.TVBoxes, data.OwnTVBox, "своя приставка"))
	}
	lines = append(lines,
		"Время подключения: "+slotLabel,
		fmt.Sprintf("Ежемесячно: %d ₽", totals.Monthly),
		fmt.Sprintf("Единоразово: %d ₽", totals.OneTime),
	)
	if data.Comment != "" {
		lines = append(lines, "Комментарий: "+data.Comment)
	}

	return dto.Lead{
		Type:      fmt.Sprintf(wizardLeadTypeFmt, tariffName),
		Name:      data.Name,
		Phone:     utils.NormalizePhone(data.Phone),
		Address:   data.Address,
		HouseType: data.HouseType,
		CallTime:  slotLabel,
		Comment:   strings.Join(lines, "\n"),
	}
}
