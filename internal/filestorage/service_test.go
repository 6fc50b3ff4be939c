package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/platform/database/dbtest"
	"launchpad_backend/internal/platform/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPublicURL = "http://localhost:8080/static"

type storageEnv struct {
	service *Service
	repo    Repository
	clock   *clock.FakeClock
	dir     string
	owner   *common.Actor
}

func setupFileStorageService(t *testing.T) *storageEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(dir, testPublicURL, zap.NewNop())
	require.NoError(t, err, "Failed to create local store")

	enforcer, err := authz.NewMemoryEnforcer()
	require.NoError(t, err)

	db := dbtest.New(t, &PendingUpload{})
	repo := NewGORMRepository(db)
	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	cfg := &config.Config{UploadMaxBytes: 2 << 20, UploadStagingTTL: 24 * time.Hour}

	return &storageEnv{
		service: NewService(repo, store, authz.NewService(enforcer, zap.NewNop()), metrics.Nop{}, clk, cfg, zap.NewNop()),
		repo:    repo,
		clock:   clk,
		dir:     dir,
		owner:   &common.Actor{UserID: uuid.New(), Role: common.RoleUser},
	}
}

func (e *storageEnv) exists(key string) bool {
	_, err := os.Stat(filepath.Join(e.dir, filepath.FromSlash(key)))
	return err == nil
}

func TestStage_StoresUnderStaging(t *testing.T) {
	env := setupFileStorageService(t)

	resp, err := env.service.Stage(context.Background(), env.owner, "logo.png", pngBytes)

	require.NoError(t, err)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Equal(t, int64(len(pngBytes)), resp.Size)
	assert.Equal(t, testPublicURL+"/staging/"+resp.UploadID.String()+".png", resp.PreviewURL)
	assert.True(t, resp.ExpiresAt.Equal(env.clock.Now().Add(24*time.Hour)))
	assert.True(t, env.exists("staging/"+resp.UploadID.String()+".png"))
}

func TestStage_RejectsAnonymousAndInvalid(t *testing.T) {
	env := setupFileStorageService(t)

	_, err := env.service.Stage(context.Background(), nil, "logo.png", pngBytes)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.service.Stage(context.Background(), env.owner, "logo.gif", []byte("GIF89a......"))
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)

	entries, err := os.ReadDir(env.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written for rejected uploads")
}

func TestConfirm_PromotesOnce(t *testing.T) {
	env := setupFileStorageService(t)
	ctx := context.Background()
	staged, err := env.service.Stage(ctx, env.owner, "logo.png", pngBytes)
	require.NoError(t, err)

	_, err = env.service.Confirm(ctx, uuid.New(), staged.UploadID)
	assert.ErrorIs(t, err, common.ErrNotFound, "other users cannot claim the upload")

	url, err := env.service.Confirm(ctx, env.owner.UserID, staged.UploadID)
	require.NoError(t, err)
	assert.Regexp(t, `^`+regexp.QuoteMeta(testPublicURL+"/logos/"+staged.UploadID.String())+`-[0-9a-f]{12}\.png$`, url)
	assert.True(t, env.exists(strings.TrimPrefix(url, testPublicURL+"/")))
	assert.False(t, env.exists("staging/"+staged.UploadID.String()+".png"))

	_, err = env.service.Confirm(ctx, env.owner.UserID, staged.UploadID)
	assert.ErrorIs(t, err, common.ErrNotFound, "an upload is consumed by its first confirmation")
}

func TestConfirm_Expired(t *testing.T) {
	env := setupFileStorageService(t)
	ctx := context.Background()
	staged, err := env.service.Stage(ctx, env.owner, "logo.png", pngBytes)
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)

	_, err = env.service.Confirm(ctx, env.owner.UserID, staged.UploadID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteByURL(t *testing.T) {
	env := setupFileStorageService(t)
	ctx := context.Background()
	staged, err := env.service.Stage(ctx, env.owner, "logo.png", pngBytes)
	require.NoError(t, err)
	url, err := env.service.Confirm(ctx, env.owner.UserID, staged.UploadID)
	require.NoError(t, err)

	key := strings.TrimPrefix(url, testPublicURL+"/")

	require.NoError(t, env.service.DeleteByURL(ctx, "https://elsewhere.example/logos/x.png"))
	assert.True(t, env.exists(key))

	require.NoError(t, env.service.DeleteByURL(ctx, url))
	assert.False(t, env.exists(key))

	require.NoError(t, env.service.DeleteByURL(ctx, url), "deleting twice is harmless")
}

func TestCollectExpired(t *testing.T) {
	env := setupFileStorageService(t)
	ctx := context.Background()
	old, err := env.service.Stage(ctx, env.owner, "old.png", pngBytes)
	require.NoError(t, err)

	env.clock.Advance(20 * time.Hour)
	fresh, err := env.service.Stage(ctx, env.owner, "fresh.png", pngBytes)
	require.NoError(t, err)

	env.clock.Advance(5 * time.Hour)
	n, err := env.service.CollectExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, env.exists("staging/"+old.UploadID.String()+".png"))
	assert.True(t, env.exists("staging/"+fresh.UploadID.String()+".png"))
	_, err = env.repo.FindByID(ctx, old.UploadID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), testPublicURL, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, store.Put(context.Background(), "../escape.png", pngBytes, "image/png"))
	assert.Error(t, store.Delete(context.Background(), "/etc/passwd"))

	key, ok := store.KeyFromURL(testPublicURL + "/logos/a.png")
	assert.True(t, ok)
	assert.Equal(t, "logos/a.png", key)
}

// newMultipartBody builds a request body with one file part.
func newMultipartBody(t *testing.T, fieldname, filename, content, contentType string) (*bytes.Buffer, string) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldname, filename))
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHandler_Stage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := setupFileStorageService(t)
	router := gin.New()
	withActor := func(c *gin.Context) {
		c.Set(common.UserIDKey, env.owner.UserID)
		c.Set(common.UserRoleKey, env.owner.Role)
		c.Next()
	}
	NewHandler(env.service, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), withActor)

	t.Run("declared content type is ignored", func(t *testing.T) {
		body, contentType := newMultipartBody(t, "file", "logo.png", string(pngBytes), "image/gif")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"content_type":"image/png"`)
	})

	t.Run("missing file field", func(t *testing.T) {
		body, contentType := newMultipartBody(t, "image", "logo.png", string(pngBytes), "")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("oversized body is cut off while parsing", func(t *testing.T) {
		huge := string(pngBytes) + strings.Repeat("a", int(env.service.MaxBytes())+2*multipartOverhead)
		body, contentType := newMultipartBody(t, "file", "logo.png", huge, "image/png")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), "maximum size")
	})

	t.Run("spoofed image", func(t *testing.T) {
		body, contentType := newMultipartBody(t, "file", "logo.png", "#!/bin/sh\necho hi", "image/png")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
