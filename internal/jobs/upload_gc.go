// File: internal/jobs/upload_gc.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"launchpad_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = 5 * time.Minute

// UploadCollector removes staged uploads that were never confirmed.
type UploadCollector interface {
	CollectExpired(ctx context.Context) (int, error)
}

// UploadGCJob periodically garbage-collects expired staged uploads.
type UploadGCJob struct {
	collector     UploadCollector
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

func NewUploadGCJob(collector UploadCollector, logger *zap.Logger, cfg *config.Config) *UploadGCJob {
	cl := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
	)
	return &UploadGCJob{
		collector:     collector,
		logger:        logger.Named("UploadGCJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *UploadGCJob) SetupAndStart() error {
	jobSpec := j.cfg.UploadGCJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Upload GC schedule not defined (UPLOAD_GC_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.RunOnce)
	if err != nil {
		j.logger.Error("Failed to schedule upload GC job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Upload GC job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

// RunOnce performs a single collection pass under the job timeout.
func (j *UploadGCJob) RunOnce() {
	j.logger.Info("Starting upload GC run...")
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	collected, err := j.collector.CollectExpired(ctx)
	if err != nil {
		j.logger.Error("Upload GC run failed", zap.Error(err), zap.Int("uploads_collected", collected))
		return
	}
	j.logger.Info("Upload GC run completed", zap.Int("uploads_collected", collected))
}

// Stop gracefully stops the cron scheduler.
func (j *UploadGCJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping upload GC scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Upload GC scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Upload GC scheduler stop timed out.")
	}
}

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	zl *zap.Logger
}

func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.fields(keysAndValues...)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(cl.fields(keysAndValues...), zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) fields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
