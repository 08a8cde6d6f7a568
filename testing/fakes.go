package testing

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
)

// FakeTariffAPI is an in-memory services.TariffAPIClient
type FakeTariffAPI struct {
	mu         sync.Mutex
	Cities     []dto.CityData
	Regions    []dto.Region
	Leads      []dto.Lead
	CitiesErr  error
	RegionsErr error
	LeadErr    error
	Calls      map[string]int
}

func NewFakeTariffAPI() *FakeTariffAPI {
	return &FakeTariffAPI{
		Cities:  SampleCatalog(),
		Regions: SampleRegions(),
		Calls:   map[string]int{},
	}
}

func (f *FakeTariffAPI) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[op]++
}

// CallCount returns how many times op was invoked
func (f *FakeTariffAPI) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *FakeTariffAPI) ListCities(ctx context.Context) ([]dto.CityData, error) {
	f.count("ListCities")
	if f.CitiesErr != nil {
		return nil, f.CitiesErr
	}
	return append([]dto.CityData{}, f.Cities...), nil
}

func (f *FakeTariffAPI) GetCity(ctx context.Context, slug string) (*dto.CityData, error) {
	f.count("GetCity")
	if f.CitiesErr != nil {
		return nil, f.CitiesErr
	}
	for _, c := range f.Cities {
		if c.Slug == slug {
			city := c
			return &city, nil
		}
	}
	return nil, services.ErrCityNotFound
}

func (f *FakeTariffAPI) ListRegions(ctx context.Context) ([]dto.Region, error) {
	f.count("ListRegions")
	if f.RegionsErr != nil {
		return nil, f.RegionsErr
	}
	return append([]dto.Region{}, f.Regions...), nil
}

func (f *FakeTariffAPI) SubmitLead(ctx context.Context, lead dto.Lead) error {
	f.count("SubmitLead")
	if f.LeadErr != nil {
		return f.LeadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Leads = append(f.Leads, lead)
	return nil
}

// SubmittedLeads returns a copy of the forwarded leads
func (f *FakeTariffAPI) SubmittedLeads() []dto.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.Lead{}, f.Leads...)
}

// FakeAdminAPI is an in-memory services.AdminAPIClient with one valid account
type FakeAdminAPI struct {
	mu          sync.Mutex
	Username    string
	Password    string
	Token       string
	Cities      []dto.CityData
	Uploads     []dto.UploadTariffsRequest
	UploadErrs  map[int]error
	UploadDelay time.Duration
	UploadSpans []UploadSpan
	ListErr     error
	Ops         []string
}

// UploadSpan is when one UploadTariffs call started and returned
type UploadSpan struct {
	Start time.Time
	End   time.Time
}

func NewFakeAdminAPI() *FakeAdminAPI {
	return &FakeAdminAPI{
		Username:   "admin",
		Password:   "secret",
		Token:      "backend-token",
		Cities:     SampleCatalog(),
		UploadErrs: map[int]error{},
	}
}

func unauthorized(op string) error {
	return &services.APIError{Method: op, URL: "fake", StatusCode: http.StatusUnauthorized, Body: "unauthorized"}
}

func (f *FakeAdminAPI) authorize(op, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, op)
	if token != f.Token {
		return unauthorized(op)
	}
	return nil
}

// Revoke invalidates the backend token, as if it expired upstream
func (f *FakeAdminAPI) Revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Token = "revoked"
}

func (f *FakeAdminAPI) Login(ctx context.Context, username, password string) (string, error) {
	if username != f.Username || password != f.Password {
		return "", unauthorized("POST")
	}
	return f.Token, nil
}

func (f *FakeAdminAPI) ListAll(ctx context.Context, token string) ([]dto.CityData, error) {
	if err := f.authorize("list", token); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dto.CityData{}, f.Cities...), nil
}

// withTariff runs fn on the addressed tariff slice of the stored dataset
func (f *FakeAdminAPI) withService(ref dto.TariffRef, fn func(svc *dto.Service) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Cities {
		if f.Cities[i].Slug != ref.City {
			continue
		}
		svc, ok := f.Cities[i].Services[ref.Service]
		if !ok {
			break
		}
		if err := fn(&svc); err != nil {
			return err
		}
		f.Cities[i].Services[ref.Service] = svc
		return nil
	}
	return &services.APIError{StatusCode: http.StatusNotFound, Body: fmt.Sprintf("%s/%s not found", ref.City, ref.Service)}
}

func (f *FakeAdminAPI) Update(ctx context.Context, token string, ref dto.TariffRef, tariff dto.Tariff) error {
	if err := f.authorize("update", token); err != nil {
		return err
	}
	return f.withService(ref, func(svc *dto.Service) error {
		for i := range svc.Tariffs {
			if svc.Tariffs[i].ID == ref.ID {
				svc.Tariffs[i] = tariff
				return nil
			}
		}
		return &services.APIError{StatusCode: http.StatusNotFound}
	})
}

func (f *FakeAdminAPI) Patch(ctx context.Context, token string, ref dto.TariffRef, patch dto.TariffPatch) error {
	if err := f.authorize("patch", token); err != nil {
		return err
	}
	return f.withService(ref, func(svc *dto.Service) error {
		for i := range svc.Tariffs {
			t := &svc.Tariffs[i]
			if t.ID != ref.ID {
				continue
			}
			if patch.Name != nil {
				t.Name = *patch.Name
			}
			if patch.Price != nil {
				t.Price = *patch.Price
			}
			if patch.Hidden != nil {
				t.Hidden = *patch.Hidden
			}
			if patch.IsHit != nil {
				t.IsHit = *patch.IsHit
			}
			return nil
		}
		return &services.APIError{StatusCode: http.StatusNotFound}
	})
}

func (f *FakeAdminAPI) remove(ref dto.TariffRef) error {
	return f.withService(ref, func(svc *dto.Service) error {
		kept := svc.Tariffs[:0:0]
		for _, t := range svc.Tariffs {
			if t.ID != ref.ID {
				kept = append(kept, t)
			}
		}
		svc.Tariffs = kept
		return nil
	})
}

func (f *FakeAdminAPI) Delete(ctx context.Context, token string, ref dto.TariffRef) error {
	if err := f.authorize("delete", token); err != nil {
		return err
	}
	return f.remove(ref)
}

func (f *FakeAdminAPI) MassDelete(ctx context.Context, token string, items []dto.TariffRef) error {
	if err := f.authorize("mass-delete", token); err != nil {
		return err
	}
	for _, ref := range items {
		if err := f.remove(ref); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeAdminAPI) MassHide(ctx context.Context, token string, items []dto.TariffRef, hidden bool) error {
	if err := f.authorize("mass-hide", token); err != nil {
		return err
	}
	for _, ref := range items {
		id := ref.ID
		err := f.withService(ref, func(svc *dto.Service) error {
			for i := range svc.Tariffs {
				if svc.Tariffs[i].ID == id {
					svc.Tariffs[i].Hidden = hidden
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeAdminAPI) Add(ctx context.Context, token, city, service string, tariff dto.Tariff) error {
	if err := f.authorize("add", token); err != nil {
		return err
	}
	return f.withService(dto.TariffRef{City: city, Service: service}, func(svc *dto.Service) error {
		svc.Tariffs = append(svc.Tariffs, tariff)
		return nil
	})
}

// UploadTariffs records the chunk. Chunks listed in UploadErrs (0-based call index) fail.
func (f *FakeAdminAPI) UploadTariffs(ctx context.Context, token string, payload dto.UploadTariffsRequest) error {
	if err := f.authorize("upload", token); err != nil {
		return err
	}
	start := time.Now()
	if f.UploadDelay > 0 {
		select {
		case <-time.After(f.UploadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.UploadSpans = append(f.UploadSpans, UploadSpan{Start: start, End: time.Now()})
	call := len(f.Uploads)
	f.Uploads = append(f.Uploads, payload)
	if err, ok := f.UploadErrs[call]; ok {
		return err
	}
	return nil
}

// UploadCount returns how many chunks reached the fake, failed ones included
func (f *FakeAdminAPI) UploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Uploads)
}

// OpCount returns how many times op was called
func (f *FakeAdminAPI) OpCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.Ops {
		if o == op {
			n++
		}
	}
	return n
}
