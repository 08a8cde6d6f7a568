package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/amirphl/tariff-storefront/models"
	"github.com/amirphl/tariff-storefront/repository"
	testingutil "github.com/amirphl/tariff-storefront/testing"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDB(t *testing.T, fn func(testDB *testingutil.TestDB) error) {
	t.Helper()
	err := testingutil.TestWithDB(fn)
	if errors.Is(err, testingutil.ErrNoTestDB) {
		t.Skip("TEST_DB_HOST not set, skipping database test")
	}
	require.NoError(t, err)
}

func newLeadRecord(phone, status string) *models.LeadRecord {
	return &models.LeadRecord{
		UUID:     uuid.New(),
		Type:     "Обратный звонок",
		Name:     "Иван",
		Phone:    phone,
		CitySlug: utils.ToPtr("moskva"),
		Source:   "form",
		Status:   status,
	}
}

func TestLeadRecordRepository(t *testing.T) {
	withDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewLeadRecordRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByUUID", func(t *testing.T) {
			record := newLeadRecord("+79123456789", models.LeadStatusPending)
			require.NoError(t, repo.Save(ctx, record))
			assert.NotZero(t, record.ID)

			found, err := repo.ByUUID(ctx, record.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, record.Phone, found.Phone)
			assert.Equal(t, "moskva", utils.Deref(found.CitySlug))
		})

		t.Run("ByUUIDNotFound", func(t *testing.T) {
			found, err := repo.ByUUID(ctx, uuid.NewString())
			assert.NoError(t, err)
			assert.Nil(t, found)
		})

		t.Run("UpdateStatus", func(t *testing.T) {
			record := newLeadRecord("+79000000001", models.LeadStatusPending)
			require.NoError(t, repo.Save(ctx, record))

			require.NoError(t, repo.UpdateStatus(ctx, record.ID, models.LeadStatusFailed, utils.ToPtr("502 bad gateway")))

			found, err := repo.ByID(ctx, record.ID)
			require.NoError(t, err)
			assert.True(t, found.IsFailed())
			assert.Equal(t, "502 bad gateway", utils.Deref(found.Error))
		})

		t.Run("ByFilter", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			for _, record := range []*models.LeadRecord{
				newLeadRecord("+79000000010", models.LeadStatusForwarded),
				newLeadRecord("+79000000011", models.LeadStatusFailed),
				newLeadRecord("+79000000012", models.LeadStatusForwarded),
			} {
				require.NoError(t, repo.Save(ctx, record))
			}

			forwarded, err := repo.ByFilter(ctx, models.LeadRecordFilter{Status: utils.ToPtr(models.LeadStatusForwarded)}, 10, 0)
			require.NoError(t, err)
			assert.Len(t, forwarded, 2)

			byPhone, err := repo.ByFilter(ctx, models.LeadRecordFilter{Phone: utils.ToPtr("+79000000011")}, 10, 0)
			require.NoError(t, err)
			require.Len(t, byPhone, 1)
			assert.Equal(t, models.LeadStatusFailed, byPhone[0].Status)

			page, err := repo.ByFilter(ctx, models.LeadRecordFilter{}, 2, 1)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, "+79000000011", page[0].Phone)
			assert.Equal(t, "+79000000010", page[1].Phone)
		})

		return nil
	})
}

func TestImportRunRepository(t *testing.T) {
	withDB(t, func(testDB *testingutil.TestDB) error {
		repo := repository.NewImportRunRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()
		base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

		var runs []*models.ImportRun
		for i, name := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
			run := &models.ImportRun{
				UUID:      uuid.New(),
				FileName:  name,
				StartedBy: "admin",
				Status:    models.ImportStatusRunning,
				TotalRows: 10 * (i + 1),
				Errors:    pq.StringArray{"row 2: empty city"},
				StartedAt: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, repo.Save(ctx, run))
			runs = append(runs, run)
		}

		t.Run("UpdateFinishesRun", func(t *testing.T) {
			run, err := repo.ByID(ctx, runs[0].ID)
			require.NoError(t, err)
			finished := base.Add(time.Hour)
			run.Status = models.ImportStatusPartial
			run.FailedChunks = 1
			run.FinishedAt = &finished
			run.Errors = append(run.Errors, "chunk 2: 500")
			require.NoError(t, repo.Update(ctx, run))

			found, err := repo.ByUUID(ctx, run.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.True(t, found.IsTerminal())
			assert.Equal(t, []string{"row 2: empty city", "chunk 2: 500"}, []string(found.Errors))
		})

		t.Run("ListRecent", func(t *testing.T) {
			recent, err := repo.ListRecent(ctx, 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, "c.xlsx", recent[0].FileName)
			assert.Equal(t, "b.xlsx", recent[1].FileName)
		})

		return nil
	})
}
