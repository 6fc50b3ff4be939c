package product

import (
	"context"
	"errors"
	"testing"
	"time"

	"launchpad_backend/internal/common"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/notification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScenarioA_SubmitAndApprove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	admin1 := env.createUser(t, "admin1", common.RoleAdmin)

	p := env.createProduct(t, alice, "Rocket Notes")
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, int64(1), p.Version)
	assert.Equal(t, "rocket-notes", p.Slug)
	assert.Equal(t, "alice", p.Username)

	env.clock.Advance(time.Hour)
	p, err := env.service.Submit(ctx, alice, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, p.Status)
	require.NotNil(t, p.SubmittedAt)
	assert.True(t, p.SubmittedAt.Equal(env.clock.Now()))

	env.clock.Advance(time.Hour)
	p, err = env.service.Approve(ctx, admin1, p.ID, p.Version)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, p.Status)
	require.NotNil(t, p.ReviewedBy)
	assert.Equal(t, admin1.UserID, *p.ReviewedBy)
	assert.Nil(t, p.RejectionReason)
	require.NotNil(t, p.PublishedAt)
	assert.True(t, p.PublishedAt.Equal(*p.ReviewedAt))
	assert.Equal(t, int64(3), p.Version)

	assert.Equal(t, []email.Template{email.TemplateProductApproved}, env.mailer.templates())
	notes, _, err := env.notifier.GetNotificationsForUser(ctx, alice.UserID, 1, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, notification.ProductApproved, notes[0].Type)
	env.indexer.AssertCalled(t, "SyncProduct", mock.Anything, mock.MatchedBy(func(got *Product) bool { return got.ID == p.ID }))
}

func TestScenarioB_RejectResubmitApprove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	admin := env.createUser(t, "admin1", common.RoleAdmin)

	p := env.createProduct(t, alice, "Rocket Notes")
	p, err := env.service.Submit(ctx, alice, p.ID, 0)
	require.NoError(t, err)

	p, err = env.service.Reject(ctx, admin, p.ID, 0, "  Missing screenshots  ")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, p.Status)
	require.NotNil(t, p.RejectionReason)
	assert.Equal(t, "Missing screenshots", *p.RejectionReason)

	p, err = env.service.Submit(ctx, alice, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, p.Status)
	assert.Nil(t, p.RejectionReason, "resubmission clears the reason")

	p, err = env.service.Approve(ctx, admin, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, p.Status)
	assert.Nil(t, p.RejectionReason)

	assert.Equal(t, []email.Template{email.TemplateProductRejected, email.TemplateProductApproved}, env.mailer.templates())
}

func TestScenarioC_FeaturedExpiryIsReadTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	admin := env.createUser(t, "admin1", common.RoleAdmin)
	p := env.publish(t, alice, admin, "Rocket Notes")

	p, err := env.service.Feature(ctx, admin, p.ID, 0, 15)
	require.NoError(t, err)
	assert.True(t, IsFeatured(p, env.clock.Now()))

	featured, err := env.service.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 1)

	env.clock.Advance(16 * 24 * time.Hour)

	stored, err := env.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Featured, "stored flag is untouched")
	assert.False(t, IsFeatured(stored, env.clock.Now()))

	featured, err = env.service.Featured(ctx)
	require.NoError(t, err)
	assert.Empty(t, featured)
}

func TestApprove_OnlyFromSubmitted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	admin := env.createUser(t, "admin1", common.RoleAdmin)
	p := env.createProduct(t, alice, "Rocket Notes")

	_, err := env.service.Approve(ctx, admin, p.ID, 0)

	var transitionErr *common.InvalidTransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, "draft", transitionErr.Current)
	assert.Equal(t, "published", transitionErr.Requested)

	stored, err := env.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version, "failed transitions do not bump the version")
}

func TestSubmit_Twice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	p := env.createProduct(t, alice, "Rocket Notes")

	_, err := env.service.Submit(ctx, alice, p.ID, 0)
	require.NoError(t, err)
	_, err = env.service.Submit(ctx, alice, p.ID, 0)

	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TRANSITION", apiErr.Code)
}

func TestCreate_DirectSubmission(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", common.RoleUser)

	p, err := env.service.Create(context.Background(), alice, CreateProductRequest{
		Name:             "Rocket Notes",
		ShortDescription: "pitch",
		Description:      "desc",
		WebsiteURL:       "https://example.com",
		Category:         "ai",
		Submit:           true,
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, p.Status)
	assert.NotNil(t, p.SubmittedAt)
}

func TestCreate_SanitizesAndNormalizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	uploadID := uuid.New()
	env.logos.On("Confirm", mock.Anything, alice.UserID, uploadID).Return("https://cdn.test/logos/abc.png", nil).Once()
	rawID := uploadID.String()

	p, err := env.service.Create(ctx, alice, CreateProductRequest{
		Name:             "Rocket <b>Notes</b>",
		ShortDescription: "pitch",
		Description:      `<p onclick="x()">hi</p><script>alert(1)</script>`,
		WebsiteURL:       "https://example.com",
		Category:         "ai",
		Tags:             []string{"Note Taking", "note-taking", "AI"},
		LogoUploadID:     &rawID,
	})

	require.NoError(t, err)
	assert.Equal(t, "Rocket Notes", p.Name)
	assert.NotContains(t, p.Description, "script")
	assert.NotContains(t, p.Description, "onclick")
	assert.Equal(t, Tags{"note-taking", "ai"}, p.Tags)
	require.NotNil(t, p.Logo)
	assert.Equal(t, "https://cdn.test/logos/abc.png", *p.Logo)

	owner, err := env.users.FindByID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, owner.ProductCount)
}

func TestCreate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", common.RoleUser)

	_, err := env.service.Create(context.Background(), alice, CreateProductRequest{
		Name:     "Rocket",
		Category: "gardening",
		Tags:     []string{"a", "b", "c", "d", "e", "f"},
	})

	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	details := apiErr.Details.(map[string]string)
	assert.Contains(t, details, "Category")
	assert.Contains(t, details, "Tags")
}

func TestCreate_SlugConflict(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", common.RoleUser)
	bob := env.createUser(t, "bob", common.RoleUser)
	env.createProduct(t, alice, "Rocket Notes")

	_, err := env.service.Create(context.Background(), bob, CreateProductRequest{
		Name:             "Rocket  Notes!",
		ShortDescription: "pitch",
		Description:      "desc",
		WebsiteURL:       "https://example.com",
		Category:         "ai",
	})

	assert.ErrorIs(t, err, common.ErrConflict)
	owner, ferr := env.users.FindByID(context.Background(), bob.UserID)
	require.NoError(t, ferr)
	assert.Equal(t, 0, owner.ProductCount)
}

func TestReject_ReasonTooShort(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	admin := env.createUser(t, "admin1", common.RoleAdmin)
	p := env.createProduct(t, alice, "Rocket Notes")
	_, err := env.service.Submit(ctx, alice, p.ID, 0)
	require.NoError(t, err)

	_, err = env.service.Reject(ctx, admin, p.ID, 0, "   needs a demo   ")
	assert.NoError(t, err, "padding is trimmed before the length check")

	p2 := env.createProduct(t, alice, "Other")
	_, err = env.service.Submit(ctx, alice, p2.ID, 0)
	require.NoError(t, err)
	_, err = env.service.Reject(ctx, admin, p2.ID, 0, "   short   ")
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
}

func TestTransitions_RequireRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	bob := env.createUser(t, "bob", common.RoleUser)
	p := env.createProduct(t, alice, "Rocket Notes")

	_, err := env.service.Submit(ctx, bob, p.ID, 0)
	assert.ErrorIs(t, err, common.ErrForbidden, "only the owner submits")

	_, err = env.service.Submit(ctx, alice, p.ID, 0)
	require.NoError(t, err)

	_, err = env.service.Approve(ctx, alice, p.ID, 0)
	assert.ErrorIs(t, err, common.ErrForbidden, "owners cannot approve their own product")

	_, err = env.service.Approve(ctx, nil, p.ID, 0)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.service.Feature(ctx, alice, p.ID, 0, 7)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestFeature_SystemActorAndDurationBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	p := env.createProduct(t, alice, "Rocket Notes")

	for _, days := range []int{0, -1, 366} {
		_, err := env.service.Feature(ctx, common.SystemActor, p.ID, 0, days)
		apiErr, ok := common.IsAPIError(err)
		require.True(t, ok, "days=%d", days)
		assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	}

	featured, err := env.service.Feature(ctx, common.SystemActor, p.ID, 0, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, featured.Status, "featuring is independent of status")
	require.NotNil(t, featured.FeaturedUntil)
	assert.True(t, featured.FeaturedUntil.Equal(testStart.AddDate(0, 0, 7)))

	premium, err := env.service.SetPremium(ctx, common.SystemActor, p.ID, 0, 30)
	require.NoError(t, err)
	assert.True(t, IsPremiumBadged(premium, env.clock.Now()))

	unfeatured, err := env.service.Unfeature(ctx, common.SystemActor, p.ID, 0)
	assert.ErrorIs(t, err, common.ErrForbidden, "system may feature but not unfeature")
	assert.Nil(t, unfeatured)
}

func TestSuspendAndReinstate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	admin := env.createUser(t, "admin1", common.RoleAdmin)
	p := env.publish(t, alice, admin, "Rocket Notes")

	reason := "Spam reports"
	p, err := env.service.Suspend(ctx, admin, p.ID, 0, &reason)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, p.Status)
	assert.Nil(t, p.RejectionReason)

	_, err = env.service.Get(ctx, nil, p.Slug)
	assert.ErrorIs(t, err, common.ErrNotFound, "suspended products are hidden")

	p, err = env.service.Reinstate(ctx, admin, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, p.Status)

	env.indexer.AssertCalled(t, "DeleteProduct", mock.Anything, p.ID)
}

func TestExpectedVersionMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	p := env.createProduct(t, alice, "Rocket Notes")

	_, err := env.service.Submit(ctx, alice, p.ID, p.Version+1)

	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "CONFLICT", apiErr.Code)

	stored, err := env.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, stored.Status)
}

func TestGet_VisibilityAndViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	bob := env.createUser(t, "bob", common.RoleUser)
	admin := env.createUser(t, "admin1", common.RoleAdmin)
	draft := env.createProduct(t, alice, "Draft Thing")

	_, err := env.service.Get(ctx, nil, draft.Slug)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = env.service.Get(ctx, bob, draft.ID.String())
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = env.service.Get(ctx, alice, draft.Slug)
	assert.NoError(t, err)
	_, err = env.service.Get(ctx, admin, draft.Slug)
	assert.NoError(t, err)

	live := env.publish(t, alice, admin, "Live Thing")
	got, err := env.service.Get(ctx, nil, live.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Views)

	got, err = env.service.Get(ctx, alice, live.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Views, "owner views are not counted")
	assert.Equal(t, live.Version, got.Version, "views do not bump the version")
}

func TestUpdate_OwnerRulesAndLogoSwap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	bob := env.createUser(t, "bob", common.RoleUser)
	admin := env.createUser(t, "admin1", common.RoleAdmin)
	p := env.createProduct(t, alice, "Rocket Notes")

	newName := "Rocket Notes Pro"
	_, err := env.service.Update(ctx, bob, p.ID, 0, UpdateProductRequest{Name: &newName})
	assert.ErrorIs(t, err, common.ErrForbidden)

	uploadID := uuid.New()
	rawID := uploadID.String()
	env.logos.On("Confirm", mock.Anything, alice.UserID, uploadID).Return("https://cdn.test/logos/new.png", nil).Once()
	updated, err := env.service.Update(ctx, alice, p.ID, p.Version, UpdateProductRequest{Name: &newName, LogoUploadID: &rawID})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, "rocket-notes", updated.Slug, "slugs are stable across renames")
	assert.Equal(t, p.Version+1, updated.Version)

	_, err = env.service.Submit(ctx, alice, p.ID, 0)
	require.NoError(t, err)
	_, err = env.service.Update(ctx, alice, p.ID, 0, UpdateProductRequest{Name: &newName})
	assert.ErrorIs(t, err, common.ErrConflict, "submitted products are locked for owners")

	_, err = env.service.Approve(ctx, admin, p.ID, 0)
	require.NoError(t, err)
}

func TestDelete_RemovesLogoAndDecrementsCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	bob := env.createUser(t, "bob", common.RoleUser)
	p := env.createProduct(t, alice, "Rocket Notes")
	logo := "https://cdn.test/logos/a.png"
	require.NoError(t, env.db.Model(&Product{}).Where("id = ?", p.ID).Update("logo", logo).Error)
	env.logos.On("DeleteByURL", mock.Anything, logo).Return(nil).Once()

	assert.ErrorIs(t, env.service.Delete(ctx, bob, p.ID), common.ErrForbidden)
	require.NoError(t, env.service.Delete(ctx, alice, p.ID))

	_, err := env.repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	owner, err := env.users.FindByID(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, owner.ProductCount)
	env.logos.AssertExpectations(t)
}

func TestToggleUpvote_Service(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", common.RoleUser)
	bob := env.createUser(t, "bob", common.RoleUser)
	admin := env.createUser(t, "admin1", common.RoleAdmin)

	t.Run("anonymous is rejected", func(t *testing.T) {
		_, err := env.service.ToggleUpvote(ctx, nil, uuid.New())
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})

	t.Run("drafts cannot be upvoted", func(t *testing.T) {
		draft := env.createProduct(t, alice, "Draft")
		_, err := env.service.ToggleUpvote(ctx, bob, draft.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("toggle twice restores state", func(t *testing.T) {
		live := env.publish(t, alice, admin, "Live")
		first, err := env.service.ToggleUpvote(ctx, bob, live.ID)
		require.NoError(t, err)
		assert.Equal(t, &UpvoteResult{Upvoted: true, Upvotes: 1}, first)

		voted, err := env.service.HasUpvoted(ctx, bob, live.ID)
		require.NoError(t, err)
		assert.True(t, voted)

		second, err := env.service.ToggleUpvote(ctx, bob, live.ID)
		require.NoError(t, err)
		assert.Equal(t, &UpvoteResult{Upvoted: false, Upvotes: 0}, second)

		stored, err := env.repo.FindByID(ctx, live.ID)
		require.NoError(t, err)
		assert.Equal(t, live.Version, stored.Version, "upvotes do not bump the version")
	})
}

func TestList_RejectsUnknownSort(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.service.List(context.Background(), ListQuery{Sort: "random"})

	assert.ErrorIs(t, err, common.ErrBadRequest)
}
