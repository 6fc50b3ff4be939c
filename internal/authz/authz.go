// Package authz holds the role -> object/action permission matrix evaluated
// at every service boundary.
package authz

import (
	"context"
	_ "embed"
	"fmt"

	"launchpad_backend/internal/common"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectProduct    = "product"
	ObjectModeration = "moderation"
	ObjectUpload     = "upload"
	ObjectUser       = "user"
	ObjectPayment    = "payment"
)

const (
	ActionCreate     = "create"
	ActionUpdateOwn  = "update_own"
	ActionUpdateAny  = "update_any"
	ActionDeleteOwn  = "delete_own"
	ActionDeleteAny  = "delete_any"
	ActionSubmitOwn  = "submit_own"
	ActionViewHidden = "view_hidden"
	ActionUpvote     = "upvote"
	ActionApprove    = "approve"
	ActionReject     = "reject"
	ActionSuspend    = "suspend"
	ActionReinstate  = "reinstate"
	ActionFeature    = "feature"
	ActionUnfeature  = "unfeature"
	ActionPremium    = "premium"
	ActionViewQueue  = "view_queue"
	ActionStage      = "stage"
	ActionChangeRole = "change_role"
	ActionCheckout   = "checkout"
)

// Authorizer checks whether a role may perform an action on an object.
type Authorizer interface {
	Authorize(ctx context.Context, actor *common.Actor, object, action string) error
}

// Service is the casbin-backed Authorizer.
type Service struct {
	enforcer *casbin.SyncedEnforcer
	logger   *zap.Logger
}

// NewEnforcer builds an enforcer persisted through gorm-adapter and seeds the default matrix.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin gorm adapter: %w", err)
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer with the default matrix and no persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(enforcer *casbin.SyncedEnforcer, logger *zap.Logger) *Service {
	return &Service{enforcer: enforcer, logger: logger.Named("authz")}
}

// Authorize returns ErrUnauthorized for anonymous callers and ErrForbidden when the
// actor's role lacks the permission.
func (s *Service) Authorize(ctx context.Context, actor *common.Actor, object, action string) error {
	if actor == nil || actor.Role == "" {
		return common.ErrUnauthorized
	}
	allowed, err := s.enforcer.Enforce(roleSubject(actor.Role), object, action)
	if err != nil {
		return fmt.Errorf("authz enforce: %w", err)
	}
	if !allowed {
		s.logger.Info("Permission denied",
			zap.String("role", actor.Role),
			zap.String("user_id", actor.UserID.String()),
			zap.String("object", object),
			zap.String("action", action),
		)
		return common.ErrForbidden.WithDetails(fmt.Sprintf("role %q may not %s %s", actor.Role, action, object))
	}
	return nil
}

func roleSubject(role string) string {
	return "role:" + role
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:user", ObjectProduct, ActionCreate},
		{"role:user", ObjectProduct, ActionUpdateOwn},
		{"role:user", ObjectProduct, ActionDeleteOwn},
		{"role:user", ObjectProduct, ActionSubmitOwn},
		{"role:user", ObjectProduct, ActionUpvote},
		{"role:user", ObjectUpload, ActionStage},
		{"role:user", ObjectPayment, ActionCheckout},

		{"role:admin", ObjectProduct, ActionUpdateAny},
		{"role:admin", ObjectProduct, ActionDeleteAny},
		{"role:admin", ObjectProduct, ActionViewHidden},
		{"role:admin", ObjectProduct, ActionApprove},
		{"role:admin", ObjectProduct, ActionReject},
		{"role:admin", ObjectProduct, ActionSuspend},
		{"role:admin", ObjectProduct, ActionReinstate},
		{"role:admin", ObjectProduct, ActionFeature},
		{"role:admin", ObjectProduct, ActionUnfeature},
		{"role:admin", ObjectProduct, ActionPremium},
		{"role:admin", ObjectModeration, ActionViewQueue},
		{"role:admin", ObjectUser, ActionChangeRole},
		{"role:admin", ObjectUser, ActionDeleteAny},

		{"role:system", ObjectProduct, ActionFeature},
		{"role:system", ObjectProduct, ActionPremium},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	// Admins hold every user permission.
	if _, err := enforcer.AddGroupingPolicy("role:admin", "role:user"); err != nil {
		return err
	}
	return nil
}
