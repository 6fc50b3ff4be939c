// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"launchpad_backend/internal/app"
	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/authz"
	"launchpad_backend/internal/badge"
	"launchpad_backend/internal/category"
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/filestorage"
	"launchpad_backend/internal/firebase"
	"launchpad_backend/internal/jobs"
	"launchpad_backend/internal/middleware"
	"launchpad_backend/internal/moderation"
	"launchpad_backend/internal/notification"
	"launchpad_backend/internal/payment"
	"launchpad_backend/internal/platform/ratelimit"
	"launchpad_backend/internal/product"
	"launchpad_backend/internal/search"
	"launchpad_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		provideDB,
		provideRegistry,
		provideRecorder,
		provideSearchClient,
		clock.New,
		ratelimit.New,

		// Identity and access
		firebase.NewFirebaseService,
		wire.Bind(new(firebase.IdentityProvider), new(*firebase.FirebaseService)),
		authz.NewEnforcer,
		authz.NewService,
		wire.Bind(new(authz.Authorizer), new(*authz.Service)),
		provideBlocklist,
		wire.Bind(new(auth.SessionBlocklist), new(*auth.InMemoryBlocklistService)),
		middleware.NewAuthenticator,

		// Email
		email.NewProvider,
		email.NewRelay,
		wire.Bind(new(email.Sender), new(*email.Relay)),

		// Users
		search.NewIndexer,
		provideIndexRemover,
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		wire.Bind(new(middleware.AccountLookup), new(*user.ServiceImplementation)),
		user.NewHandler,
		auth.NewService,
		wire.Bind(new(auth.Service), new(*auth.ServiceImplementation)),
		auth.NewHandler,

		// Uploads
		filestorage.NewGORMRepository,
		filestorage.NewObjectStore,
		filestorage.NewService,
		filestorage.NewHandler,
		wire.Bind(new(product.LogoStore), new(*filestorage.Service)),
		wire.Bind(new(user.LogoRemover), new(*filestorage.Service)),
		wire.Bind(new(jobs.UploadCollector), new(*filestorage.Service)),
		jobs.NewUploadGCJob,

		// Products
		notification.NewGORMRepository,
		notification.NewService,
		notification.NewHandler,
		product.NewGORMRepository,
		product.NewService,
		wire.Bind(new(product.Service), new(*product.ServiceImplementation)),
		product.NewHandler,
		search.NewService,
		wire.Bind(new(search.Service), new(*search.ServiceImplementation)),
		search.NewHandler,
		moderation.NewService,
		wire.Bind(new(moderation.Service), new(*moderation.ServiceImplementation)),
		moderation.NewHandler,
		provideProductCounter,
		category.NewService,
		category.NewHandler,
		badge.NewHandler,

		// Payments
		payment.NewGORMRepository,
		payment.NewGateway,
		payment.NewService,
		wire.Bind(new(payment.Service), new(*payment.ServiceImplementation)),
		wire.Bind(new(payment.Promoter), new(*product.ServiceImplementation)),
		payment.NewHandler,

		// Application Layer
		wire.Struct(new(app.Handlers), "*"),
		app.NewServer,
	)
	return nil, nil, nil
}
