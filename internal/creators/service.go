package creators

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coffeeworth/coffeeworth-backend/internal/supports"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db"
	"github.com/coffeeworth/coffeeworth-backend/pkg/db/models"
	dbtypes "github.com/coffeeworth/coffeeworth-backend/pkg/db/types"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

const (
	// MinCoffeePrice and MaxCoffeePrice bound the configurable coffee price in KRW.
	MinCoffeePrice = 1000
	MaxCoffeePrice = 100000
	// RecentSupportLimit is how many supporters a public page shows.
	RecentSupportLimit = 10

	maxBioLength  = 500
	maxNameLength = 50
)

var (
	usernameRe   = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	themeColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

	reservedUsernames = map[string]struct{}{
		"admin": {}, "api": {}, "me": {}, "support": {}, "supports": {},
		"settings": {}, "dashboard": {}, "login": {}, "signup": {},
	}
)

// UpdateProfileInput carries a partial profile update; nil fields stay unchanged.
type UpdateProfileInput struct {
	Name        *string
	Username    *string
	Image       *string
	Bio         *string
	CoffeePrice *int
	ThemeColor  *string
	SocialLinks *dbtypes.SocialLinks
	BankCode    *string
	BankAccount *string
	BankHolder  *string
	EmailNotify *bool
	IsPublic    *bool
}

// Service defines creator account and public page operations.
type Service interface {
	GetPublicProfile(ctx context.Context, username string) (*ProfileDTO, error)
	GetMe(ctx context.Context, userID uuid.UUID) (*MeDTO, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*MeDTO, error)
}

type service struct {
	repo     Repository
	supports supports.Repository
	log      *logger.Logger
}

// NewService wires a creators service with its dependencies.
func NewService(repo Repository, supportsRepo supports.Repository, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("creators repository required")
	}
	if supportsRepo == nil {
		return nil, fmt.Errorf("supports repository required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, supports: supportsRepo, log: log}, nil
}

func (s *service) GetPublicProfile(ctx context.Context, username string) (*ProfileDTO, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}

	creator, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "creator not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if !creator.IsPublic {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "creator not found")
	}

	recent, err := s.supports.ListRecentCompleted(ctx, creator.ID, RecentSupportLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent supports")
	}

	total, err := s.supports.CountCompleted(ctx, creator.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count supports")
	}

	profile := &ProfileDTO{
		ID:             creator.ID,
		Username:       username,
		DisplayName:    creator.DisplayName(),
		Image:          creator.Image,
		Bio:            creator.Bio,
		CoffeePrice:    creator.CoffeePrice,
		ThemeColor:     creator.ThemeColor,
		SocialLinks:    creator.SocialLinks,
		SupportCount:   total,
		RecentSupports: make([]supports.SupportDTO, 0, len(recent)),
	}
	for i := range recent {
		profile.RecentSupports = append(profile.RecentSupports, *supports.FromModelAnonymized(&recent[i]))
	}
	return profile, nil
}

func (s *service) GetMe(ctx context.Context, userID uuid.UUID) (*MeDTO, error) {
	creator, err := s.findOwn(ctx, userID)
	if err != nil {
		return nil, err
	}
	return meFromModel(creator), nil
}

func (s *service) UpdateMe(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*MeDTO, error) {
	creator, err := s.findOwn(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if !usernameRe.MatchString(username) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				"username must be 3-20 characters of letters, digits, '-' or '_'")
		}
		if _, reserved := reservedUsernames[strings.ToLower(username)]; reserved {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is reserved")
		}
		creator.Username = &username
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if utf8.RuneCountInString(name) > maxNameLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("name must be at most %d characters", maxNameLength))
		}
		creator.Name = optional(name)
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("bio must be at most %d characters", maxBioLength))
		}
		creator.Bio = optional(bio)
	}
	if input.Image != nil {
		creator.Image = optional(strings.TrimSpace(*input.Image))
	}
	if input.CoffeePrice != nil {
		price := *input.CoffeePrice
		if price < MinCoffeePrice || price > MaxCoffeePrice {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("coffee price must be between %d and %d", MinCoffeePrice, MaxCoffeePrice))
		}
		creator.CoffeePrice = price
	}
	if input.ThemeColor != nil {
		color := strings.TrimSpace(*input.ThemeColor)
		if !themeColorRe.MatchString(color) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "theme color must be a hex color like #FFDD00")
		}
		creator.ThemeColor = color
	}
	if input.SocialLinks != nil {
		creator.SocialLinks = *input.SocialLinks
	}
	if input.BankCode != nil {
		creator.BankCode = optional(strings.TrimSpace(*input.BankCode))
	}
	if input.BankAccount != nil {
		creator.BankAccount = optional(strings.TrimSpace(*input.BankAccount))
	}
	if input.BankHolder != nil {
		creator.BankHolder = optional(strings.TrimSpace(*input.BankHolder))
	}
	if input.EmailNotify != nil {
		creator.EmailNotify = *input.EmailNotify
	}
	if input.IsPublic != nil {
		creator.IsPublic = *input.IsPublic
	}

	if err := s.repo.Update(ctx, creator); err != nil {
		if db.IsUniqueViolation(err, "idx_users_username") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update creator")
	}

	ctx = s.log.WithUserID(ctx, userID.String())
	s.log.Info(ctx, "creator profile updated")

	return meFromModel(creator), nil
}

func (s *service) findOwn(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	creator, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return creator, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
