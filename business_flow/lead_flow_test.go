package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/models"
	testingutil "github.com/amirphl/tariff-storefront/testing"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(err error) map[string]string {
	fields, _ := ValidationFields(err)
	return fields
}

func validLead() *dto.LeadRequest {
	return &dto.LeadRequest{
		Type:      "Обратный звонок",
		Name:      " Иван ",
		Phone:     "8 (912) 345-67-89",
		Address:   "ул. Ленина, 1",
		HouseType: utils.HouseTypeApartment,
	}
}

func TestLeadFlow_Submit(t *testing.T) {
	ctx := context.Background()
	metadata := NewClientMetadata("203.0.113.7", "test-agent")
	metadata.SetRequestID("req-1")

	t.Run("forwarded and journaled", func(t *testing.T) {
		api := testingutil.NewFakeTariffAPI()
		repo := testingutil.NewFakeLeadRepository()
		flow := NewLeadFlow(api, repo, nil)

		resp, err := flow.Submit(ctx, validLead(), metadata)
		require.NoError(t, err)
		assert.Equal(t, LeadStatusAccepted, resp.Status)
		assert.Equal(t, utils.CompletionPath, resp.Redirect)
		assert.NotEmpty(t, resp.LeadID)

		leads := api.SubmittedLeads()
		require.Len(t, leads, 1)
		assert.Equal(t, "+79123456789", leads[0].Phone)
		assert.Equal(t, "Иван", leads[0].Name)

		rec, _ := repo.ByUUID(ctx, resp.LeadID)
		require.NotNil(t, rec)
		assert.Equal(t, models.LeadStatusForwarded, rec.Status)
		assert.Equal(t, LeadSourceForm, rec.Source)
		assert.Equal(t, "req-1", utils.Deref(rec.RequestID))
		assert.Equal(t, "test-agent", utils.Deref(rec.UserAgent))
		assert.Nil(t, rec.Error)
	})

	t.Run("backend failure is still accepted", func(t *testing.T) {
		api := testingutil.NewFakeTariffAPI()
		api.LeadErr = errors.New("502 bad gateway")
		repo := testingutil.NewFakeLeadRepository()
		flow := NewLeadFlow(api, repo, nil)

		resp, err := flow.Submit(ctx, validLead(), metadata)
		require.NoError(t, err)
		assert.Equal(t, LeadStatusAccepted, resp.Status)

		rec, _ := repo.ByUUID(ctx, resp.LeadID)
		require.NotNil(t, rec)
		assert.Equal(t, models.LeadStatusFailed, rec.Status)
		assert.Contains(t, utils.Deref(rec.Error), "502")
	})

	t.Run("journal failure does not block forwarding", func(t *testing.T) {
		api := testingutil.NewFakeTariffAPI()
		repo := testingutil.NewFakeLeadRepository()
		repo.SaveErr = errors.New("db down")
		flow := NewLeadFlow(api, repo, nil)

		_, err := flow.Submit(ctx, validLead(), nil)
		require.NoError(t, err)
		assert.Len(t, api.SubmittedLeads(), 1)
	})

	t.Run("without database", func(t *testing.T) {
		api := testingutil.NewFakeTariffAPI()
		flow := NewLeadFlow(api, nil, nil)

		_, err := flow.Submit(ctx, validLead(), metadata)
		require.NoError(t, err)
		assert.Len(t, api.SubmittedLeads(), 1)
	})
}

func TestLeadFlow_SubmitValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(r *dto.LeadRequest)
		expectedField string
	}{
		{name: "missing name", mutate: func(r *dto.LeadRequest) { r.Name = "" }, expectedField: "name"},
		{name: "short name", mutate: func(r *dto.LeadRequest) { r.Name = "И" }, expectedField: "name"},
		{name: "bad phone", mutate: func(r *dto.LeadRequest) { r.Phone = "12345" }, expectedField: "phone"},
		{name: "landline prefix", mutate: func(r *dto.LeadRequest) { r.Phone = "+7 (112) 345-67-89" }, expectedField: "phone"},
		{name: "unknown house type", mutate: func(r *dto.LeadRequest) { r.HouseType = "castle" }, expectedField: "house_type"},
		{name: "missing type", mutate: func(r *dto.LeadRequest) { r.Type = "" }, expectedField: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testingutil.NewFakeTariffAPI()
			flow := NewLeadFlow(api, nil, nil)
			req := validLead()
			tt.mutate(req)

			_, err := flow.Submit(context.Background(), req, nil)
			require.Error(t, err)
			assert.True(t, IsLeadValidation(err))
			assert.Contains(t, fieldsOf(err), tt.expectedField)
			assert.Empty(t, api.SubmittedLeads())
		})
	}
}

func TestLeadFlow_SubmitNilRequest(t *testing.T) {
	flow := NewLeadFlow(testingutil.NewFakeTariffAPI(), nil, nil)
	_, err := flow.Submit(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestLeadFlow_Journal(t *testing.T) {
	ctx := context.Background()
	api := testingutil.NewFakeTariffAPI()
	repo := testingutil.NewFakeLeadRepository()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	flow := NewLeadFlow(api, repo, nil)

	var ids []string
	for _, phone := range []string{"+79000000001", "+79000000002", "+79000000003"} {
		req := validLead()
		req.Phone = phone
		resp, err := flow.Submit(ctx, req, nil)
		require.NoError(t, err)
		ids = append(ids, resp.LeadID)
	}
	api.LeadErr = errors.New("502 bad gateway")
	failedReq := validLead()
	failedReq.Phone = "+79000000004"
	failed, err := flow.Submit(ctx, failedReq, nil)
	require.NoError(t, err)

	t.Run("newest first with paging", func(t *testing.T) {
		page, err := flow.ListJournal(ctx, dto.LeadJournalFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page.Leads, 2)
		assert.Equal(t, ids[2], page.Leads[0].ID)
		assert.Equal(t, ids[1], page.Leads[1].ID)
		assert.Equal(t, 2, page.Limit)
		assert.Equal(t, 1, page.Offset)
	})

	t.Run("status filter", func(t *testing.T) {
		page, err := flow.ListJournal(ctx, dto.LeadJournalFilter{Status: utils.ToPtr(models.LeadStatusFailed)})
		require.NoError(t, err)
		require.Len(t, page.Leads, 1)
		assert.Equal(t, failed.LeadID, page.Leads[0].ID)
		assert.Contains(t, page.Leads[0].Error, "502")
		assert.Equal(t, utils.LeadJournalPageSize, page.Limit)
	})

	t.Run("phone is normalized before matching", func(t *testing.T) {
		page, err := flow.ListJournal(ctx, dto.LeadJournalFilter{Phone: utils.ToPtr("8 (900) 000-00-02")})
		require.NoError(t, err)
		require.Len(t, page.Leads, 1)
		assert.Equal(t, ids[1], page.Leads[0].ID)
	})

	t.Run("date window", func(t *testing.T) {
		page, err := flow.ListJournal(ctx, dto.LeadJournalFilter{
			StartDate: utils.ToPtr(base.Add(2 * time.Minute)),
			EndDate:   utils.ToPtr(base.Add(3 * time.Minute)),
		})
		require.NoError(t, err)
		require.Len(t, page.Leads, 2)
		assert.Equal(t, ids[2], page.Leads[0].ID)
		assert.Equal(t, ids[1], page.Leads[1].ID)
	})

	t.Run("page size is capped", func(t *testing.T) {
		page, err := flow.ListJournal(ctx, dto.LeadJournalFilter{Limit: 10_000})
		require.NoError(t, err)
		assert.Equal(t, utils.LeadJournalMaxPageSize, page.Limit)
		assert.Len(t, page.Leads, 4)
	})

	t.Run("bad filters", func(t *testing.T) {
		_, err := flow.ListJournal(ctx, dto.LeadJournalFilter{
			Status:    utils.ToPtr("lost"),
			Phone:     utils.ToPtr("12345"),
			StartDate: utils.ToPtr(base.Add(time.Hour)),
			EndDate:   utils.ToPtr(base),
		})
		require.Error(t, err)
		fields := fieldsOf(err)
		assert.Contains(t, fields, "status")
		assert.Contains(t, fields, "phone")
		assert.Contains(t, fields, "end_date")
	})

	t.Run("entry by id", func(t *testing.T) {
		entry, err := flow.JournalEntry(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, "+79000000001", entry.Phone)
		assert.Equal(t, models.LeadStatusForwarded, entry.Status)
		assert.Equal(t, LeadSourceForm, entry.Source)
	})

	t.Run("unknown or malformed id", func(t *testing.T) {
		for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
			_, err := flow.JournalEntry(ctx, id)
			assert.True(t, IsLeadNotFound(err), id)
		}
	})
}

func TestLeadFlow_JournalWithoutDatabase(t *testing.T) {
	flow := NewLeadFlow(testingutil.NewFakeTariffAPI(), nil, nil)

	_, err := flow.ListJournal(context.Background(), dto.LeadJournalFilter{})
	assert.True(t, IsLeadJournalDisabled(err))
	_, err = flow.JournalEntry(context.Background(), uuid.NewString())
	assert.True(t, IsLeadJournalDisabled(err))
}
