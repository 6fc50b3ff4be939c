package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/badge"
	"launchpad_backend/internal/category"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/filestorage"
	"launchpad_backend/internal/firebase"
	"launchpad_backend/internal/firebase/firebasetest"
	"launchpad_backend/internal/middleware"
	"launchpad_backend/internal/moderation"
	"launchpad_backend/internal/notification"
	"launchpad_backend/internal/payment"
	"launchpad_backend/internal/platform/database/dbtest"
	"launchpad_backend/internal/platform/metrics"
	"launchpad_backend/internal/platform/ratelimit"
	"launchpad_backend/internal/product"
	"launchpad_backend/internal/search"
	"launchpad_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	server   *Server
	identity *firebasetest.MockIdentityProvider
	users    *user.ServiceImplementation
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	require.NoError(t, common.RegisterValidators())
	logger := zap.NewNop()
	db := dbtest.New(t, &user.User{}, &product.Product{}, &product.Upvote{}, &notification.Notification{},
		&filestorage.PendingUpload{}, &payment.Payment{})

	cfg := &config.Config{
		GinMode:                  gin.TestMode,
		ServerHost:               "127.0.0.1",
		ServerPort:               "0",
		PublicBaseURL:            "https://launchpad.test",
		RejectionReasonMinLength: 10,
		FeaturedCarouselSize:     3,
		MaxFeatureDurationDays:   365,
		StorageBackend:           "local",
		StorageLocalPath:         t.TempDir(),
		StoragePublicURL:         "https://launchpad.test/uploads",
		UploadStagingTTL:         time.Hour,
		MetricsEnabled:           true,
		ProductsIndex:            "products",
	}

	identity := new(firebasetest.MockIdentityProvider)
	enforcer, err := authz.NewMemoryEnforcer()
	require.NoError(t, err)
	authorizer := authz.NewService(enforcer, logger)
	clk := clock.New()
	registry := prometheus.NewRegistry()
	recorder := metrics.NewCollector(registry)
	relay, err := email.NewRelay(&email.NoOpProvider{}, cfg, recorder, logger)
	require.NoError(t, err)

	userRepo := user.NewGORMRepository(db)
	blocklist := auth.NewInMemoryBlocklistService(auth.DefaultBlocklistConfig())

	store, err := filestorage.NewLocalStore(cfg.StorageLocalPath, cfg.StoragePublicURL, logger)
	require.NoError(t, err)
	uploads := filestorage.NewService(filestorage.NewGORMRepository(db), store, authorizer, recorder, clk, cfg, logger)
	users := user.NewService(userRepo, identity, authorizer, search.NopIndexer{}, uploads, logger)
	authService := auth.NewService(identity, users, blocklist, relay, clk, cfg, logger)

	notifications := notification.NewService(notification.NewGORMRepository(db), logger)
	productRepo := product.NewGORMRepository(db)
	products := product.NewService(productRepo, userRepo, authorizer, uploads, search.NopIndexer{}, notifications, relay, recorder, clk, cfg, logger)
	payments := payment.NewService(payment.NewGORMRepository(db), nil, productRepo, products, userRepo, authorizer, notifications, relay, recorder, clk, cfg, logger)

	handlers := Handlers{
		Auth:         auth.NewHandler(authService, users, logger),
		User:         user.NewHandler(users, logger),
		Product:      product.NewHandler(products, logger),
		Search:       search.NewHandler(search.NewService(nil, productRepo, cfg, logger), clk, logger),
		Moderation:   moderation.NewHandler(moderation.NewService(productRepo, authorizer, clk, logger), logger),
		Category:     category.NewHandler(category.NewService(productRepo, logger), logger),
		Notification: notification.NewHandler(notifications, logger),
		Upload:       filestorage.NewHandler(uploads, logger),
		Payment:      payment.NewHandler(payments, logger),
		Badge:        badge.NewHandler(logger),
	}
	limiter := ratelimit.NewMemoryLimiter(100, 100, time.Minute)
	t.Cleanup(limiter.Stop)

	server, err := NewServer(cfg, logger, handlers,
		middleware.NewAuthenticator(identity, users, blocklist, logger),
		limiter, registry, recorder, relay, nil)
	require.NoError(t, err)
	return &testServer{server: server, identity: identity, users: users}
}

func (ts *testServer) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	return w
}

func TestServer_PublicRoutes(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/health", http.StatusOK, "application/json"},
		{"/api/v1/products", http.StatusOK, "application/json"},
		{"/api/v1/products/featured", http.StatusOK, "application/json"},
		{"/api/v1/products/search?q=rocket", http.StatusOK, "application/json"},
		{"/api/v1/categories", http.StatusOK, "application/json"},
		{"/api/v1/payments/plans", http.StatusOK, "application/json"},
		{"/api/badges?type=launched&name=Rocket", http.StatusOK, "image/svg+xml"},
		{"/api/v1/nope", http.StatusNotFound, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := ts.get(tt.path, "")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.get("/health", "")

	w := ts.get("/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `launchpad_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestServer_AuthenticatedRoutes(t *testing.T) {
	ts := newTestServer(t)
	u, err := ts.users.Register(context.Background(), user.RegisterParams{
		FirebaseUID: "fb-alice", Username: "alice", Email: "alice@example.com",
	})
	require.NoError(t, err)
	ts.identity.On("VerifyIDToken", mock.Anything, "alice-token").
		Return(&firebase.Identity{Subject: "fb-alice", Email: "alice@example.com", IssuedAt: time.Now()}, nil)

	assert.Equal(t, http.StatusUnauthorized, ts.get("/api/v1/auth/me", "").Code)

	w := ts.get("/api/v1/auth/me", "alice-token")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), u.ID.String())

	assert.Equal(t, http.StatusOK, ts.get("/api/v1/notifications", "alice-token").Code)
	assert.Equal(t, http.StatusOK, ts.get("/api/v1/payments", "alice-token").Code)
	assert.Equal(t, http.StatusForbidden, ts.get("/api/v1/admin/moderation/queue", "alice-token").Code)
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, ts.server.Shutdown(ctx))
}
