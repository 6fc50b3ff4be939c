// File: internal/filestorage/service.go
package filestorage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/platform/crypto"
	"launchpad_backend/internal/platform/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const gcBatchSize = 100

// Upload outcomes reported to metrics.
const (
	outcomeStaged    = "staged"
	outcomeRejected  = "rejected"
	outcomeConfirmed = "confirmed"
	outcomeCollected = "collected"
	outcomeError     = "error"
)

// Service stages logo uploads, promotes them when a product references them
// and garbage-collects the ones never confirmed.
type Service struct {
	repo     Repository
	store    ObjectStore
	authz    authz.Authorizer
	metrics  metrics.Recorder
	clock    clock.Clock
	ttl      time.Duration
	maxBytes int64
	logger   *zap.Logger
}

func NewService(repo Repository, store ObjectStore, authorizer authz.Authorizer, recorder metrics.Recorder, clk clock.Clock, cfg *config.Config, logger *zap.Logger) *Service {
	ttl := cfg.UploadStagingTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		repo:     repo,
		store:    store,
		authz:    authorizer,
		metrics:  recorder,
		clock:    clk,
		ttl:      ttl,
		maxBytes: cfg.UploadMaxBytes,
		logger:   logger.Named("filestorage"),
	}
}

// MaxBytes is the accepted upload size.
func (s *Service) MaxBytes() int64 {
	if s.maxBytes <= 0 {
		return DefaultMaxBytes
	}
	return s.maxBytes
}

// Stage validates and stores an image under the staging prefix.
func (s *Service) Stage(ctx context.Context, actor *common.Actor, filename string, data []byte) (*UploadResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ObjectUpload, authz.ActionStage); err != nil {
		return nil, err
	}
	img, err := ValidateImage(filename, data, s.MaxBytes())
	if err != nil {
		s.metrics.RecordUpload(outcomeRejected)
		return nil, err
	}

	now := s.clock.Now()
	upload := &PendingUpload{
		ID:          uuid.New(),
		OwnerID:     actor.UserID,
		ContentType: img.MIME,
		Size:        int64(len(img.Data)),
		CreatedAt:   now,
	}
	upload.Key = StagingPrefix + upload.ID.String() + img.Extension

	if err := s.store.Put(ctx, upload.Key, img.Data, img.MIME); err != nil {
		s.metrics.RecordUpload(outcomeError)
		s.logger.Error("Failed to store staged upload", zap.Error(err), zap.String("key", upload.Key))
		return nil, common.ErrInternalServer.WithDetails("Could not store the upload.")
	}
	if err := s.repo.Create(ctx, upload); err != nil {
		s.metrics.RecordUpload(outcomeError)
		s.removeObject(ctx, upload.Key)
		return nil, fmt.Errorf("failed to record staged upload: %w", err)
	}

	s.metrics.RecordUpload(outcomeStaged)
	s.logger.Info("Upload staged",
		zap.String("uploadID", upload.ID.String()),
		zap.String("owner", actor.UserID.String()),
		zap.String("contentType", img.MIME),
		zap.Int64("size", upload.Size),
	)
	return &UploadResponse{
		UploadID:    upload.ID,
		PreviewURL:  s.store.URL(upload.Key),
		ContentType: upload.ContentType,
		Size:        upload.Size,
		ExpiresAt:   now.Add(s.ttl),
	}, nil
}

// Confirm promotes a staged upload owned by ownerID to a permanent key and
// returns its public URL. Each upload can be confirmed once.
func (s *Service) Confirm(ctx context.Context, ownerID, uploadID uuid.UUID) (string, error) {
	upload, err := s.repo.FindByID(ctx, uploadID)
	if err != nil {
		return "", err
	}
	if upload.OwnerID != ownerID {
		return "", common.ErrNotFound.WithDetails("Upload not found or already used.")
	}
	if !upload.CreatedAt.After(s.clock.Now().Add(-s.ttl)) {
		return "", common.ErrNotFound.WithDetails("Upload has expired. Please upload the file again.")
	}

	suffix, err := crypto.GenerateObjectName(6)
	if err != nil {
		return "", fmt.Errorf("failed to name logo object: %w", err)
	}
	// Permanent keys are unique per confirmation.
	dst := LogoPrefix + upload.ID.String() + "-" + suffix + path.Ext(upload.Key)
	if err := s.store.Copy(ctx, upload.Key, dst); err != nil {
		s.metrics.RecordUpload(outcomeError)
		s.logger.Error("Failed to promote staged upload", zap.Error(err), zap.String("uploadID", uploadID.String()))
		return "", common.ErrInternalServer.WithDetails("Could not store the upload.")
	}
	claimed, err := s.repo.Delete(ctx, upload.ID)
	if err != nil || !claimed {
		s.removeObject(ctx, dst)
		if err != nil {
			return "", err
		}
		return "", common.ErrNotFound.WithDetails("Upload not found or already used.")
	}
	s.removeObject(ctx, upload.Key)

	s.metrics.RecordUpload(outcomeConfirmed)
	return s.store.URL(dst), nil
}

// DeleteByURL removes a permanent object by its public URL. URLs this store
// does not serve are ignored.
func (s *Service) DeleteByURL(ctx context.Context, url string) error {
	key, ok := s.store.KeyFromURL(url)
	if !ok || !strings.HasPrefix(key, LogoPrefix) {
		s.logger.Debug("Ignoring delete for foreign URL", zap.String("url", url))
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("Stored object deleted", zap.String("key", key))
	return nil
}

// CollectExpired deletes staged uploads older than the TTL and returns how many were removed.
func (s *Service) CollectExpired(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.ttl)
	collected := 0
	for {
		batch, err := s.repo.ListOlderThan(ctx, cutoff, gcBatchSize)
		if err != nil {
			return collected, fmt.Errorf("failed to list expired uploads: %w", err)
		}
		if len(batch) == 0 {
			return collected, nil
		}
		for _, upload := range batch {
			if err := s.store.Delete(ctx, upload.Key); err != nil {
				s.logger.Warn("Failed to delete expired upload object", zap.Error(err), zap.String("key", upload.Key))
			}
			if _, err := s.repo.Delete(ctx, upload.ID); err != nil {
				return collected, fmt.Errorf("failed to delete expired upload %s: %w", upload.ID, err)
			}
			collected++
			s.metrics.RecordUpload(outcomeCollected)
		}
		if len(batch) < gcBatchSize {
			return collected, nil
		}
	}
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete object", zap.Error(err), zap.String("key", key))
	}
}
