package businessflow

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
	"github.com/amirphl/tariff-storefront/app/services"
	"github.com/amirphl/tariff-storefront/models"
	"github.com/amirphl/tariff-storefront/repository"
	"github.com/amirphl/tariff-storefront/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// finished jobs stay queryable in memory for this long
const importJobRetention = time.Hour

// ImportOptions controls chunking and pacing of an upload
type ImportOptions struct {
	ChunkSize      int
	ChunkDelay     time.Duration
	RequestTimeout time.Duration
	MaxErrors      int
}

func (o ImportOptions) withDefaults() ImportOptions {
	if o.ChunkSize <= 0 {
		o.ChunkSize = utils.ImportChunkSize
	}
	if o.ChunkDelay <= 0 {
		o.ChunkDelay = utils.ImportChunkDelay
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = utils.ImportRequestTimeout
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = utils.ImportMaxErrors
	}
	return o
}

// ImportFlow runs Excel imports as background jobs
type ImportFlow interface {
	Start(ctx context.Context, session *dto.AdminSession, fileName string, file io.Reader) (*dto.ImportStartResponse, error)
	Status(ctx context.Context, id string) (*dto.ImportStatusResponse, error)
	Cancel(ctx context.Context, id string) (*dto.ImportStatusResponse, error)
	Recent(ctx context.Context, limit int) ([]dto.ImportStatusResponse, error)
}

type importJob struct {
	mu     sync.Mutex
	status dto.ImportStatusResponse
	runID  uint
	cancel context.CancelFunc
	done   chan struct{}
}

func (j *importJob) snapshot() dto.ImportStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.status
	s.Errors = append([]string{}, j.status.Errors...)
	return s
}

func (j *importJob) update(fn func(s *dto.ImportStatusResponse)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.status)
}

type ImportFlowImpl struct {
	api        services.AdminAPIClient
	importRepo repository.ImportRunRepository
	opts       ImportOptions
	now        utils.Clock
	newID      func() int

	mu   sync.Mutex
	jobs map[string]*importJob
}

// NewImportFlow wires the flow. importRepo may be nil when the database is disabled.
func NewImportFlow(api services.AdminAPIClient, importRepo repository.ImportRunRepository, opts ImportOptions) *ImportFlowImpl {
	return &ImportFlowImpl{
		api:        api,
		importRepo: importRepo,
		opts:       opts.withDefaults(),
		now:        utils.UTCNow,
		newID:      func() int { return rand.IntN(math.MaxInt32) + 1 },
		jobs:       make(map[string]*importJob),
	}
}

// GroupRows nests rows City → Service → Tariff, keeping first-seen order of cities and row order of tariffs
func GroupRows(rows []ImportRow) []dto.CityData {
	var order []string
	byCity := map[string]*dto.CityData{}
	for _, row := range rows {
		city, ok := byCity[row.CitySlug]
		if !ok {
			city = &dto.CityData{
				Slug:     row.CitySlug,
				Meta:     dto.CityMeta{Name: row.CityName, Region: row.Region},
				Services: map[string]dto.Service{},
			}
			byCity[row.CitySlug] = city
			order = append(order, row.CitySlug)
		}
		if city.Meta.Region == "" && row.Region != "" {
			city.Meta.Region = row.Region
		}
		svc, ok := city.Services[row.Category]
		if !ok {
			svc = dto.Service{ID: row.Category, Title: CategoryTypeLabel(row.Category)}
		}
		svc.Tariffs = append(svc.Tariffs, row.Tariff)
		city.Services[row.Category] = svc
	}

	out := make([]dto.CityData, 0, len(order))
	for _, slug := range order {
		out = append(out, *byCity[slug])
	}
	return out
}

// assignIDs gives every row a random positive id unique within the batch and the known ids
func assignIDs(rows []ImportRow, taken map[int]bool, next func() int) {
	for i := range rows {
		id := next()
		for id <= 0 || taken[id] {
			id = next()
		}
		taken[id] = true
		rows[i].Tariff.ID = id
	}
}

func existingIDs(cities []dto.CityData) map[int]bool {
	ids := map[int]bool{}
	for _, city := range cities {
		for _, svc := range city.Services {
			for _, t := range svc.Tariffs {
				ids[t.ID] = true
			}
		}
	}
	return ids
}

// Start parses the workbook synchronously and uploads it in the background
func (f *ImportFlowImpl) Start(ctx context.Context, session *dto.AdminSession, fileName string, file io.Reader) (*dto.ImportStartResponse, error) {
	if file == nil {
		return nil, NewBusinessError("IMPORT_FILE_INVALID", "file is required", ErrImportFileInvalid)
	}
	parsed, err := ParseWorkbook(file)
	if err != nil {
		return nil, err
	}
	if len(parsed.Rows) == 0 {
		return nil, NewValidationError(ErrImportEmpty, map[string]string{"file": fmt.Sprintf("no usable rows, %d skipped", len(parsed.Skipped))})
	}

	taken := map[int]bool{}
	if current, err := f.api.ListAll(ctx, session.BackendToken); err != nil {
		log.Warn().Err(err).Msg("Could not load existing tariffs for id collision check")
	} else {
		taken = existingIDs(current)
	}
	assignIDs(parsed.Rows, taken, f.newID)

	chunks := lo.Chunk(parsed.Rows, f.opts.ChunkSize)
	id := uuid.New()
	started := f.now()

	job := &importJob{
		status: dto.ImportStatusResponse{
			ImportID:    id.String(),
			FileName:    fileName,
			Status:      models.ImportStatusRunning,
			TotalRows:   len(parsed.Rows) + len(parsed.Skipped),
			SkippedRows: len(parsed.Skipped),
			Cities:      len(GroupRows(parsed.Rows)),
			Chunks:      len(chunks),
			Errors:      append([]string{}, lo.Slice(parsed.Skipped, 0, f.opts.MaxErrors)...),
			StartedAt:   started,
		},
		done: make(chan struct{}),
	}

	if f.importRepo != nil {
		run := &models.ImportRun{
			UUID:        id,
			FileName:    fileName,
			StartedBy:   session.Username,
			Status:      models.ImportStatusRunning,
			TotalRows:   job.status.TotalRows,
			SkippedRows: job.status.SkippedRows,
			Chunks:      len(chunks),
			Errors:      pq.StringArray(job.status.Errors),
			StartedAt:   started,
		}
		if err := f.importRepo.Save(ctx, run); err != nil {
			log.Warn().Err(err).Str("import_id", id.String()).Msg("Failed to journal import start")
		} else {
			job.runID = run.ID
		}
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel

	f.mu.Lock()
	f.pruneLocked()
	f.jobs[id.String()] = job
	f.mu.Unlock()

	log.Info().
		Str("import_id", id.String()).
		Str("file", fileName).
		Int("rows", len(parsed.Rows)).
		Int("chunks", len(chunks)).
		Msg("Tariff import started")

	go f.run(jobCtx, job, session.BackendToken, chunks)

	return &dto.ImportStartResponse{
		ImportID:  id.String(),
		Status:    models.ImportStatusRunning,
		TotalRows: job.status.TotalRows,
		Chunks:    len(chunks),
	}, nil
}

// run sends chunks strictly one at a time with ChunkDelay of quiet between the end of one
// chunk and the start of the next. A failed chunk is recorded and the loop goes on;
// cancellation stops it before the next chunk and aborts the one in flight.
func (f *ImportFlowImpl) run(ctx context.Context, job *importJob, token string, chunks [][]ImportRow) {
	defer close(job.done)
	defer job.cancel()

	canceled := false

	for i, chunk := range chunks {
		if ctx.Err() != nil || (i > 0 && !pause(ctx, f.opts.ChunkDelay)) {
			canceled = true
			break
		}

		reqCtx, cancel := context.WithTimeout(ctx, f.opts.RequestTimeout)
		err := f.api.UploadTariffs(reqCtx, token, dto.UploadTariffsRequest{Cities: GroupRows(chunk)})
		cancel()

		if err != nil && ctx.Err() != nil {
			canceled = true
			job.update(func(s *dto.ImportStatusResponse) {
				s.SentChunks++
				s.FailedChunks++
				s.FailedRows += len(chunk)
				f.appendError(s, fmt.Sprintf("chunk %d: aborted", i+1))
			})
			importChunksTotal.WithLabelValues("canceled").Inc()
			break
		}

		job.update(func(s *dto.ImportStatusResponse) {
			s.SentChunks++
			if err != nil {
				s.FailedChunks++
				s.FailedRows += len(chunk)
				f.appendError(s, fmt.Sprintf("chunk %d: %v", i+1, err))
				return
			}
			s.SucceededChunks++
			s.UploadedRows += len(chunk)
		})
		if err != nil {
			importChunksTotal.WithLabelValues("failed").Inc()
			log.Error().Err(err).Int("chunk", i+1).Msg("Import chunk failed")
		} else {
			importChunksTotal.WithLabelValues("succeeded").Inc()
		}
	}

	finished := f.now()
	job.update(func(s *dto.ImportStatusResponse) {
		s.FinishedAt = &finished
		s.Status = finalImportStatus(*s, canceled)
	})
	final := job.snapshot()
	f.journalFinish(job.runID, final)

	log.Info().
		Str("import_id", final.ImportID).
		Str("status", final.Status).
		Int("uploaded_rows", final.UploadedRows).
		Int("failed_chunks", final.FailedChunks).
		Msg("Tariff import finished")
}

// pause waits d and reports false when ctx ends first
func pause(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (f *ImportFlowImpl) appendError(s *dto.ImportStatusResponse, msg string) {
	if len(s.Errors) < f.opts.MaxErrors {
		s.Errors = append(s.Errors, msg)
	}
}

func finalImportStatus(s dto.ImportStatusResponse, canceled bool) string {
	switch {
	case canceled:
		return models.ImportStatusCanceled
	case s.FailedChunks == 0:
		return models.ImportStatusCompleted
	case s.SucceededChunks == 0:
		return models.ImportStatusFailed
	default:
		return models.ImportStatusPartial
	}
}

func (f *ImportFlowImpl) journalFinish(runID uint, s dto.ImportStatusResponse) {
	if f.importRepo == nil || runID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	run, err := f.importRepo.ByID(ctx, runID)
	if err != nil || run == nil {
		log.Warn().Err(err).Str("import_id", s.ImportID).Msg("Import journal row not found")
		return
	}
	run.Status = s.Status
	run.SucceededChunks = s.SucceededChunks
	run.FailedChunks = s.FailedChunks
	run.UploadedRows = s.UploadedRows
	run.Errors = pq.StringArray(s.Errors)
	run.FinishedAt = s.FinishedAt
	if err := f.importRepo.Update(ctx, run); err != nil {
		log.Warn().Err(err).Str("import_id", s.ImportID).Msg("Failed to journal import result")
	}
}

// pruneLocked forgets finished jobs past retention; f.mu must be held
func (f *ImportFlowImpl) pruneLocked() {
	cutoff := f.now().Add(-importJobRetention)
	for id, job := range f.jobs {
		s := job.snapshot()
		if s.FinishedAt != nil && s.FinishedAt.Before(cutoff) {
			delete(f.jobs, id)
		}
	}
}

func (f *ImportFlowImpl) job(id string) (*importJob, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	return job, ok
}

func (f *ImportFlowImpl) Status(ctx context.Context, id string) (*dto.ImportStatusResponse, error) {
	if job, ok := f.job(id); ok {
		s := job.snapshot()
		return &s, nil
	}
	if f.importRepo != nil {
		if _, err := uuid.Parse(id); err == nil {
			run, err := f.importRepo.ByUUID(ctx, id)
			if err != nil {
				return nil, err
			}
			if run != nil {
				s := runToStatus(run)
				return &s, nil
			}
		}
	}
	return nil, NewBusinessError("IMPORT_NOT_FOUND", "import not found", ErrImportNotFound)
}

// Cancel aborts a running import. Chunks already sent stay uploaded.
func (f *ImportFlowImpl) Cancel(ctx context.Context, id string) (*dto.ImportStatusResponse, error) {
	job, ok := f.job(id)
	if !ok {
		return nil, NewBusinessError("IMPORT_NOT_FOUND", "import not found", ErrImportNotFound)
	}
	if job.snapshot().FinishedAt != nil {
		return nil, NewBusinessError("IMPORT_ALREADY_FINISHED", "import already finished", ErrImportAlreadyFinish)
	}

	job.cancel()
	select {
	case <-job.done:
	case <-ctx.Done():
	}
	s := job.snapshot()
	return &s, nil
}

// Recent lists journaled imports, newest first
func (f *ImportFlowImpl) Recent(ctx context.Context, limit int) ([]dto.ImportStatusResponse, error) {
	if f.importRepo == nil {
		f.mu.Lock()
		jobs := lo.Values(f.jobs)
		f.mu.Unlock()
		out := lo.Map(jobs, func(j *importJob, _ int) dto.ImportStatusResponse { return j.snapshot() })
		sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
		return lo.Slice(out, 0, limit), nil
	}

	runs, err := f.importRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, NewBusinessError("IMPORT_LIST_FAILED", "failed to list imports", err)
	}
	return lo.Map(runs, func(r *models.ImportRun, _ int) dto.ImportStatusResponse { return runToStatus(r) }), nil
}

func runToStatus(run *models.ImportRun) dto.ImportStatusResponse {
	return dto.ImportStatusResponse{
		ImportID:        run.UUID.String(),
		FileName:        run.FileName,
		Status:          run.Status,
		TotalRows:       run.TotalRows,
		SkippedRows:     run.SkippedRows,
		Chunks:          run.Chunks,
		SentChunks:      run.SucceededChunks + run.FailedChunks,
		SucceededChunks: run.SucceededChunks,
		FailedChunks:    run.FailedChunks,
		UploadedRows:    run.UploadedRows,
		Errors:          append([]string{}, run.Errors...),
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
	}
}
