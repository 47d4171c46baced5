package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indicates that no account matches the requested identifier.
	ErrUserNotFound = errors.New("directory: user not found")
	// ErrBadCredentials indicates a failed password login.
	ErrBadCredentials = errors.New("directory: bad credentials")
	// ErrEmailTaken indicates an attempt to register a duplicate email.
	ErrEmailTaken = errors.New("directory: email already registered")
	// ErrInactiveUser indicates a login attempt against a deactivated account.
	ErrInactiveUser = errors.New("directory: account deactivated")

	errMissingDatabase = errors.New("directory: database handle is required")
)

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service manages club accounts and resolves identities for the chat core.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	cache sync.Map
}

// NewService constructs the directory service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:  cfg.Database,
		now: clock,
	}, nil
}

// NewUser carries the fields required to register an account.
type NewUser struct {
	UserID      string
	Email       string
	DisplayName string
	Role        Role
	Password    string
}

// CreateUser registers a new account with a bcrypt-hashed credential.
func (s *Service) CreateUser(ctx context.Context, input NewUser) (User, error) {
	userID := strings.TrimSpace(input.UserID)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	displayName := strings.TrimSpace(input.DisplayName)
	if userID == "" || email == "" || displayName == "" {
		return User{}, fmt.Errorf("directory: user id, email and display name are required")
	}
	if !input.Role.Valid() {
		return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, input.Role)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("directory: password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var conflict int64
	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("email = ? OR user_id = ?", email, userID).
		Count(&conflict).Error; err != nil {
		return User{}, err
	}
	if conflict > 0 {
		return User{}, ErrEmailTaken
	}

	user := User{
		UserID:       userID,
		Email:        email,
		DisplayName:  displayName,
		Role:         input.Role,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

// UserUpdate carries the optional fields an admin may change on an account.
type UserUpdate struct {
	DisplayName *string
	Role        *Role
	Active      *bool
}

// UpdateUser applies the provided fields to an existing account.
func (s *Service) UpdateUser(ctx context.Context, userID string, update UserUpdate) (User, error) {
	changes := map[string]interface{}{}
	if update.DisplayName != nil {
		displayName := strings.TrimSpace(*update.DisplayName)
		if displayName == "" {
			return User{}, fmt.Errorf("directory: display name cannot be empty")
		}
		changes["display_name"] = displayName
	}
	if update.Role != nil {
		if !update.Role.Valid() {
			return User{}, fmt.Errorf("%w: %q", ErrInvalidRole, *update.Role)
		}
		changes["role"] = *update.Role
	}
	if update.Active != nil {
		changes["active"] = *update.Active
	}

	if len(changes) > 0 {
		result := s.db.WithContext(ctx).Model(&User{}).
			Where("user_id = ?", userID).
			Updates(changes)
		if result.Error != nil {
			return User{}, result.Error
		}
		if result.RowsAffected == 0 {
			return User{}, ErrUserNotFound
		}
		s.cache.Delete(userID)
	}

	return s.loadUser(ctx, userID)
}

// Authenticate verifies an email+password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !user.Active {
		return User{}, ErrInactiveUser
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return user, nil
}

// GetUser resolves an account by identifier. Results are cached; the cache is
// invalidated on update.
func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	if cached, ok := s.cache.Load(userID); ok {
		if user, ok := cached.(User); ok {
			return user, nil
		}
	}
	return s.loadUser(ctx, userID)
}

// ListVisibleTo returns the accounts the given role may see as chat targets:
// members see staff and admins, admins see staff and other admins, staff see
// everyone. The requesting account itself is excluded.
func (s *Service) ListVisibleTo(ctx context.Context, viewerID string, viewerRole Role) ([]User, error) {
	query := s.db.WithContext(ctx).
		Where("active = ?", true).
		Where("user_id <> ?", viewerID).
		Order("display_name ASC")

	switch viewerRole {
	case RoleStaff:
	case RoleAdmin, RoleMember:
		query = query.Where("role <> ?", RoleMember)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, viewerRole)
	}

	var users []User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	s.cache.Store(userID, user)
	return user, nil
}
