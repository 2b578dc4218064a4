package creators

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	"github.com/coffeeworth/coffeeworth-backend/pkg/enums"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

type stubCreatorsRepo struct {
	Repository

	user      *models.User
	findErr   error
	updateErr error
	updated   *models.User
}

func (s *stubCreatorsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.user, nil
}

func (s *stubCreatorsRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.user, nil
}

func (s *stubCreatorsRepo) Update(ctx context.Context, user *models.User) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = user
	return nil
}

type stubSupportsRepo struct {
	supports.Repository

	recent []models.Support
	count  int64
}

func (s *stubSupportsRepo) ListRecentCompleted(ctx context.Context, creatorID uuid.UUID, limit int) ([]models.Support, error) {
	return s.recent, nil
}

func (s *stubSupportsRepo) CountCompleted(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	return s.count, nil
}

func testCreator() *models.User {
	name := "김작가"
	username := "kimwriter"
	return &models.User{
		ID:          uuid.New(),
		Email:       "kim@example.com",
		Name:        &name,
		Username:    &username,
		CoffeePrice: 3000,
		ThemeColor:  "#FFDD00",
		IsPublic:    true,
	}
}

func newService(t *testing.T, repo Repository, supportsRepo supports.Repository) Service {
	t.Helper()
	svc, err := NewService(repo, supportsRepo, logger.New(logger.Options{ServiceName: "creators-test", Level: logger.ParseLevel("error")}))
	require.NoError(t, err)
	return svc
}

func TestGetPublicProfile(t *testing.T) {
	creator := testCreator()
	secret := "응원해요"
	anonName := "홍길동"
	recent := []models.Support{{
		ID:            uuid.New(),
		CreatorID:     creator.ID,
		CoffeeCount:   1,
		UnitPrice:     3000,
		Amount:        3000,
		Message:       &secret,
		SupporterName: &anonName,
		IsAnonymous:   true,
		OrderID:       "ORD_1_a",
		Status:        enums.SupportStatusCompleted,
		CreatedAt:     time.Now(),
	}}

	svc := newService(t, &stubCreatorsRepo{user: creator}, &stubSupportsRepo{recent: recent, count: 7})

	profile, err := svc.GetPublicProfile(context.Background(), "kimwriter")
	require.NoError(t, err)
	assert.Equal(t, "김작가", profile.DisplayName)
	assert.Equal(t, int64(7), profile.SupportCount)
	require.Len(t, profile.RecentSupports, 1)
	assert.Equal(t, supports.AnonymousSupporterName, profile.RecentSupports[0].SupporterName)
	assert.Nil(t, profile.RecentSupports[0].Message)
}

func TestGetPublicProfileHidden(t *testing.T) {
	creator := testCreator()
	creator.IsPublic = false
	svc := newService(t, &stubCreatorsRepo{user: creator}, &stubSupportsRepo{})

	_, err := svc.GetPublicProfile(context.Background(), "kimwriter")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetPublicProfileUnknown(t *testing.T) {
	svc := newService(t, &stubCreatorsRepo{findErr: gorm.ErrRecordNotFound}, &stubSupportsRepo{})

	_, err := svc.GetPublicProfile(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateMe(t *testing.T) {
	creator := testCreator()
	repo := &stubCreatorsRepo{user: creator}
	svc := newService(t, repo, &stubSupportsRepo{})

	price := 5000
	bio := "매주 에세이를 씁니다"
	color := "#112233"
	me, err := svc.UpdateMe(context.Background(), creator.ID, UpdateProfileInput{
		CoffeePrice: &price,
		Bio:         &bio,
		ThemeColor:  &color,
	})
	require.NoError(t, err)
	assert.Equal(t, 5000, me.CoffeePrice)
	require.NotNil(t, me.Bio)
	assert.Equal(t, bio, *me.Bio)
	assert.Equal(t, "#112233", me.ThemeColor)
	require.NotNil(t, repo.updated)
}

func TestUpdateMeValidation(t *testing.T) {
	creator := testCreator()
	svc := newService(t, &stubCreatorsRepo{user: creator}, &stubSupportsRepo{})
	ctx := context.Background()

	lowPrice := MinCoffeePrice - 1
	highPrice := MaxCoffeePrice + 1
	badUsername := "a!"
	reserved := "admin"
	badColor := "yellow"

	tests := []struct {
		name  string
		input UpdateProfileInput
	}{
		{"price too low", UpdateProfileInput{CoffeePrice: &lowPrice}},
		{"price too high", UpdateProfileInput{CoffeePrice: &highPrice}},
		{"bad username", UpdateProfileInput{Username: &badUsername}},
		{"reserved username", UpdateProfileInput{Username: &reserved}},
		{"bad theme color", UpdateProfileInput{ThemeColor: &badColor}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateMe(ctx, creator.ID, tc.input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestUpdateMeUsernameTakenConflicts(t *testing.T) {
	creator := testCreator()
	repo := &stubCreatorsRepo{
		user:      creator,
		updateErr: errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_username" (SQLSTATE 23505)`),
	}
	svc := newService(t, repo, &stubSupportsRepo{})

	taken := "latteart"
	_, err := svc.UpdateMe(context.Background(), creator.ID, UpdateProfileInput{Username: &taken})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestUpdateMeRequiresAuth(t *testing.T) {
	svc := newService(t, &stubCreatorsRepo{user: testCreator()}, &stubSupportsRepo{})

	_, err := svc.UpdateMe(context.Background(), uuid.Nil, UpdateProfileInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}
