package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"eventhub-api/config"
	"eventhub-api/logging"
	"eventhub-api/models"
	"eventhub-api/repositories"
	"eventhub-api/utils"
	"eventhub-api/validation"
)

const msgBadCredentials = "Unable to log in with provided credentials."

type UserService struct {
	users           *repositories.UserRepository
	presenter       *Presenter
	mailer          Mailer
	tokens          *TokenService
	auth            config.AuthConfig
	strictBirthYear bool
	now             func() time.Time
}

func NewUserService(db *gorm.DB, presenter *Presenter, mailer Mailer, tokens *TokenService, auth config.AuthConfig, strictBirthYear bool) *UserService {
	return &UserService{
		users:           repositories.NewUserRepository(db),
		presenter:       presenter,
		mailer:          mailer,
		tokens:          tokens,
		auth:            auth,
		strictBirthYear: strictBirthYear,
		now:             time.Now,
	}
}

func (s *UserService) checkBirthYear(year *int, fields utils.FieldErrors) {
	if year == nil {
		return
	}
	if err := validation.ValidateBirthYear(*year, s.now(), s.strictBirthYear); err != nil {
		fields.Add("birth_year", err.Error())
	}
}

// Register creates an account. With activation required the account starts
// inactive and an activation link is mailed; a failed send undoes the signup.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.UserResponse, error) {
	fields := utils.FieldErrors{}
	s.checkBirthYear(req.BirthYear, fields)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.NewInternal("Failed to hash password", err)
	}

	user := &models.User{
		Username:    req.Username,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		PhoneNumber: req.PhoneNumber,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Password:    string(hash),
		Photo:       req.Photo,
		BirthYear:   req.BirthYear,
		Bio:         req.Bio,
		IsActive:    !s.auth.ActivationRequired,
	}
	if s.auth.ActivationRequired {
		token := strings.ReplaceAll(uuid.NewString(), "-", "")
		expires := s.now().Add(s.auth.ActivationTTL).UTC()
		user.ActivationToken = &token
		user.ActivationExpires = &expires
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if s.auth.ActivationRequired {
		if err := s.mailer.SendActivationEmail(ctx, user.Email, user.Username, user.ID, *user.ActivationToken); err != nil {
			if delErr := s.users.Delete(ctx, user); delErr != nil {
				logging.Ctx(ctx).Error().Err(delErr).Uint("user_id", user.ID).Msg("failed to remove account after mail failure")
			}
			return nil, utils.NewUpstream("Could not send the activation email.", err)
		}
	}

	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Bool("active", user.IsActive).Msg("user registered")
	return s.presenter.User(ctx, 0, user)
}

func (s *UserService) Activate(ctx context.Context, req models.ActivationRequest) error {
	user, err := s.users.Get(ctx, req.UID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.NewValidationError("Invalid user id or user doesn't exist.")
		}
		return err
	}
	if user.IsActive {
		return utils.NewPermissionDenied("Stale token for given user.")
	}
	if user.ActivationToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.ActivationToken), []byte(req.Token)) != 1 ||
		user.ActivationExpires == nil || s.now().After(*user.ActivationExpires) {
		return utils.NewValidationError("Invalid token for given user.")
	}
	return s.users.Activate(ctx, user)
}

// Login checks the credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return "", utils.NewValidationError(msgBadCredentials)
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", utils.NewValidationError(msgBadCredentials)
	}
	if !user.IsActive {
		return "", utils.NewValidationError(msgBadCredentials)
	}
	return s.tokens.Issue(user)
}

// Authenticate resolves an access token to an active user.
func (s *UserService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	id, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.NewUnauthenticated("User inactive or deleted.")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, utils.NewUnauthenticated("User inactive or deleted.")
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, viewerID uint, page utils.Page) ([]models.UserResponse, int64, error) {
	users, total, err := s.users.List(ctx, page.Offset(), page.Size)
	if err != nil {
		return nil, 0, err
	}
	if len(users) == 0 && page.Number > 1 {
		return nil, 0, utils.NewNotFound("Invalid page.")
	}
	out, err := s.presenter.Users(ctx, viewerID, users)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Subscriptions lists the authors viewerID follows.
func (s *UserService) Subscriptions(ctx context.Context, viewerID uint, page utils.Page) ([]models.UserResponse, int64, error) {
	users, total, err := s.users.Subscriptions(ctx, viewerID, page.Offset(), page.Size)
	if err != nil {
		return nil, 0, err
	}
	if len(users) == 0 && page.Number > 1 {
		return nil, 0, utils.NewNotFound("Invalid page.")
	}
	out, err := s.presenter.Users(ctx, viewerID, users)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.Get(ctx, id)
}

func (s *UserService) Retrieve(ctx context.Context, viewerID, id uint) (*models.UserResponse, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.presenter.User(ctx, viewerID, user)
}

// UpdateProfile applies req to user. Without partial the identity fields are
// required.
func (s *UserService) UpdateProfile(ctx context.Context, viewerID uint, user *models.User, req models.ProfileRequest, partial bool) (*models.UserResponse, error) {
	fields := utils.FieldErrors{}
	if !partial {
		for name, v := range map[string]*string{
			"username":     req.Username,
			"first_name":   req.FirstName,
			"last_name":    req.LastName,
			"phone_number": req.PhoneNumber,
		} {
			if v == nil {
				fields.Add(name, "This field is required.")
			}
		}
	}
	s.checkBirthYear(req.BirthYear, fields)
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"username", req.Username},
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"phone_number", req.PhoneNumber},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			fields.Add(f.name, "This field may not be blank.")
		}
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	upd := repositories.ProfileUpdate{
		Username:    req.Username,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Photo:       req.Photo,
		BirthYear:   req.BirthYear,
		Bio:         req.Bio,
	}
	if req.Activities != nil {
		upd.ActivityIDs = *req.Activities
		upd.ReplaceActivities = true
	}
	if err := s.users.UpdateProfile(ctx, user, upd); err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, viewerID, user.ID)
}

func (s *UserService) Delete(ctx context.Context, user *models.User) error {
	if err := s.users.Delete(ctx, user); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("user deleted")
	return nil
}

// RemoveExpiredAccounts deletes never-activated accounts past their window.
func (s *UserService) RemoveExpiredAccounts(ctx context.Context) (int, error) {
	return s.users.DeleteExpiredInactive(ctx, s.now())
}
