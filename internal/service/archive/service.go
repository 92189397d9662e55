package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	"github.com/sghealthtrack/healthtrack-api/internal/service/audit"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
	"github.com/sghealthtrack/healthtrack-api/pkg/logger"
	"github.com/sghealthtrack/healthtrack-api/pkg/metrics"
	"github.com/sghealthtrack/healthtrack-api/pkg/storage"
)

// MaxBatchSize caps the x-ray rows handled in a single run.
const MaxBatchSize = 5000

type Config struct {
	Bucket         string
	Prefix         string
	BatchSize      int
	RetentionYears int
	// IncludeFiles is used when a request does not say.
	IncludeFiles bool
}

// Service stamps archived_at on rows older than a cutoff and moves x-ray
// objects under the archive prefix. Rows are never deleted.
type Service struct {
	repo    repository.ArchiveRepository
	store   storage.ObjectStore
	cfg     Config
	metrics *metrics.Metrics
	auditor *audit.Service
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(repo repository.ArchiveRepository, store storage.ObjectStore, cfg Config, m *metrics.Metrics, auditor *audit.Service, log *logger.Logger) *Service {
	if cfg.Bucket == "" {
		cfg.Bucket = "xray-results"
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	if cfg.Prefix == "" {
		cfg.Prefix = "archive"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = model.DefaultArchiveBatchSize
	}
	if cfg.RetentionYears <= 0 {
		cfg.RetentionYears = model.DefaultRetentionYears
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:    repo,
		store:   store,
		cfg:     cfg,
		metrics: m,
		auditor: auditor,
		logger:  log.WithFields(map[string]interface{}{"component": "archiver"}),
		now:     time.Now,
	}
}

// Options resolves a request body against the configured defaults.
// dryRun defaults to false and includeFiles to the configured value.
func (s *Service) Options(req model.ArchiveRequest) (model.ArchiveOptions, error) {
	opts := model.ArchiveOptions{
		DryRun:       lo.FromPtr(req.DryRun),
		IncludeFiles: lo.FromPtrOr(req.IncludeFiles, s.cfg.IncludeFiles),
		BatchSize:    lo.FromPtrOr(req.BatchSize, s.cfg.BatchSize),
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = s.cfg.BatchSize
	}
	opts.BatchSize = min(opts.BatchSize, MaxBatchSize)

	cutoff := strings.TrimSpace(req.CutoffISO)
	if cutoff == "" {
		opts.Cutoff = s.now().UTC().AddDate(-s.cfg.RetentionYears, 0, 0)
		return opts, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, cutoff); err == nil {
			opts.Cutoff = t.UTC()
			return opts, nil
		}
	}
	return opts, apperrors.BadRequest("cutoffIso must be an ISO 8601 date", nil)
}

// Run walks the archive tables in order. A table failure aborts the run;
// x-ray file failures are collected in the summary.
func (s *Service) Run(ctx context.Context, actor *model.Actor, opts model.ArchiveOptions) (summary *model.ArchiveSummary, err error) {
	started := s.now()
	defer func() {
		s.metrics.ArchiveRun(opts.DryRun, err, time.Since(started))
	}()

	at := started.UTC()
	summary = &model.ArchiveSummary{
		OK:           true,
		DryRun:       opts.DryRun,
		IncludeFiles: opts.IncludeFiles,
		CutoffISO:    opts.Cutoff.UTC().Format(time.RFC3339Nano),
		ArchivedAt:   at.Format(time.RFC3339Nano),
		Tables:       make(map[string]model.TableResult, len(model.ArchiveTables)),
	}

	log := s.logger.WithFields(map[string]interface{}{
		"dry_run": opts.DryRun,
		"cutoff":  summary.CutoffISO,
	})
	log.Info("archive run started")

	for _, t := range model.ArchiveTables {
		if opts.DryRun {
			matches, err := s.repo.CountEligible(ctx, t, opts.Cutoff)
			if err != nil {
				log.Error(err, "archive run aborted", "table", t.Name)
				return nil, apperrors.Internal(err)
			}
			summary.Tables[t.Name] = model.TableResult{Matches: lo.ToPtr(matches)}
			s.metrics.ArchiveTable(t.Name, true, matches)
			continue
		}

		updated, err := s.repo.StampTable(ctx, t, opts.Cutoff, at)
		if err != nil {
			log.Error(err, "archive run aborted", "table", t.Name)
			return nil, apperrors.Internal(err)
		}
		summary.Tables[t.Name] = model.TableResult{Updated: lo.ToPtr(updated)}
		s.metrics.ArchiveTable(t.Name, false, updated)
	}

	if opts.IncludeFiles {
		if opts.DryRun {
			matches, err := s.repo.CountXrayFiles(ctx, opts.Cutoff)
			if err != nil {
				return nil, apperrors.Internal(err)
			}
			summary.Files = &model.FilesResult{Bucket: s.cfg.Bucket, Matches: lo.ToPtr(matches)}
		} else {
			files, err := s.archiveFiles(ctx, opts, at)
			if err != nil {
				return nil, apperrors.Internal(err)
			}
			summary.Files = files
		}
	}

	if !opts.DryRun {
		s.auditor.Log(ctx, actor, model.ActivityArchive, model.EntityArchive, nil, map[string]interface{}{
			"cutoff":        summary.CutoffISO,
			"include_files": opts.IncludeFiles,
			"tables":        summary.Tables,
		})
	}
	log.Info("archive run finished", "elapsed_ms", time.Since(started).Milliseconds())
	return summary, nil
}

func (s *Service) archiveFiles(ctx context.Context, opts model.ArchiveOptions, at time.Time) (*model.FilesResult, error) {
	moved, skipped := 0, 0
	var updated, dataOnly int64
	res := &model.FilesResult{Bucket: s.cfg.Bucket, Errors: []model.FileError{}}

	rows, err := s.repo.ListXrayFiles(ctx, opts.Cutoff, opts.BatchSize)
	if err != nil {
		return nil, err
	}

	prefix := s.cfg.Prefix + "/"
	for _, row := range rows {
		id := row.ID
		path := strings.TrimSpace(lo.FromPtr(row.FilePath))
		if path == "" {
			skipped++
			s.metrics.ArchiveFile("skipped")
			continue
		}

		if strings.HasPrefix(path, prefix) {
			if err := s.repo.ArchiveXrayFile(ctx, id, path, at); err != nil {
				res.Errors = append(res.Errors, fileError(id, path, err))
				s.metrics.ArchiveFile("error")
				continue
			}
			updated++
			s.metrics.ArchiveFile("stamped")
			continue
		}

		dest := prefix + path
		if err := s.move(ctx, path, dest); err != nil {
			res.Errors = append(res.Errors, fileError(id, path, err))
			s.metrics.ArchiveFile("error")
			continue
		}
		if err := s.repo.ArchiveXrayFile(ctx, id, dest, at); err != nil {
			// The object is already under the prefix; the next run finds it
			// through the missing-source check in move.
			s.logger.Warn("x-ray moved but row not updated", "id", id.String(), "file_path", dest, "error", err.Error())
			res.Errors = append(res.Errors, fileError(id, dest, err))
			s.metrics.ArchiveFile("error")
			continue
		}
		moved++
		updated++
		s.metrics.ArchiveFile("moved")
	}

	n, err := s.repo.StampXrayWithoutFile(ctx, opts.Cutoff, at)
	if err != nil {
		res.Errors = append(res.Errors, model.FileError{Error: err.Error()})
	} else {
		dataOnly = n
		updated += n
	}

	res.Moved = lo.ToPtr(moved)
	res.Updated = lo.ToPtr(updated)
	res.DataOnlyUpdated = lo.ToPtr(dataOnly)
	res.Skipped = lo.ToPtr(skipped)
	return res, nil
}

// move relocates an object. A missing source whose destination already
// exists was moved by an earlier run that failed to update the row.
func (s *Service) move(ctx context.Context, from, to string) error {
	err := s.store.Move(ctx, s.cfg.Bucket, from, to)
	if err == nil || !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}
	exists, existsErr := s.store.Exists(ctx, s.cfg.Bucket, to)
	if existsErr != nil {
		return fmt.Errorf("%w (stat destination: %v)", err, existsErr)
	}
	if !exists {
		return err
	}
	s.logger.Info("x-ray already under archive prefix", "file_path", to)
	return nil
}

func fileError(id uuid.UUID, path string, err error) model.FileError {
	return model.FileError{ID: &id, FilePath: lo.ToPtr(path), Error: err.Error()}
}
