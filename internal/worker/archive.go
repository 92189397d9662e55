package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
	"github.com/sghealthtrack/healthtrack-api/pkg/logger"
)

// Archiver is the retention run the worker drives.
type Archiver interface {
	Options(req model.ArchiveRequest) (model.ArchiveOptions, error)
	Run(ctx context.Context, actor *model.Actor, opts model.ArchiveOptions) (*model.ArchiveSummary, error)
}

// ArchiveWorker runs the archiver once or on a cron schedule.
type ArchiveWorker struct {
	archiver Archiver
	logger   *logger.Logger
	timeout  time.Duration
}

func NewArchiveWorker(archiver Archiver, log *logger.Logger, timeout time.Duration) *ArchiveWorker {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &ArchiveWorker{
		archiver: archiver,
		logger:   log.WithFields(map[string]interface{}{"worker": "archive"}),
		timeout:  timeout,
	}
}

// RunOnce resolves req and performs a single archive run.
func (w *ArchiveWorker) RunOnce(ctx context.Context, req model.ArchiveRequest) (*model.ArchiveSummary, error) {
	opts, err := w.archiver.Options(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	summary, err := w.archiver.Run(ctx, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("archive run failed: %w", err)
	}
	return summary, nil
}

// Schedule starts a scheduler that runs req on every cron tick. Runs never
// overlap. Stop the returned scheduler to end it.
func (w *ArchiveWorker) Schedule(ctx context.Context, cron string, loc *time.Location, req model.ArchiveRequest) (*gocron.Scheduler, error) {
	if _, err := w.archiver.Options(req); err != nil {
		return nil, err
	}

	scheduler := gocron.NewScheduler(loc)
	scheduler.SingletonModeAll()

	_, err := scheduler.Cron(cron).Do(func() {
		summary, err := w.RunOnce(ctx, req)
		if err != nil {
			w.logger.Error(err, "scheduled archive run failed")
			return
		}
		w.logger.Info("scheduled archive run finished",
			"cutoff", summary.CutoffISO,
			"dry_run", summary.DryRun,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid archive schedule %q: %w", cron, err)
	}

	scheduler.StartAsync()
	w.logger.Info("archive schedule started", "cron", cron)
	return scheduler, nil
}
