package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/foodorder/internal/identity"
	"github.com/example/foodorder/internal/metrics"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/utils"
)

const fallbackProfileName = "Customer"

// ProfileService owns profile provisioning, registration and administration.
type ProfileService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewProfileService constructs ProfileService.
func NewProfileService(db *gorm.DB, log logrus.FieldLogger) *ProfileService {
	return &ProfileService{db: db, log: log.WithField("component", "profiles")}
}

// GetOrCreate returns the profile for a verified identity, creating a customer profile on
// first contact. Concurrent callers for the same identity all receive the single stored row.
func (s *ProfileService) GetOrCreate(ctx context.Context, ident *identity.Identity) (*models.Profile, error) {
	candidate := models.Profile{
		BaseModel: models.BaseModel{ID: ident.ID},
		Name:      displayName(ident),
		Role:      models.RoleCustomer,
	}
	if email := strings.ToLower(strings.TrimSpace(ident.Email)); email != "" {
		candidate.Email = &email
	}
	if ident.Phone != "" {
		phone := ident.Phone
		candidate.Phone = &phone
	}

	db := s.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate)
	if res.Error != nil {
		return nil, res.Error
	}

	var profile models.Profile
	if err := db.First(&profile, "id = ?", ident.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The insert was skipped because another profile already owns the email.
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if res.RowsAffected > 0 {
		metrics.RecordProfileProvisioned()
		s.log.WithField("profile_id", profile.ID).Info("profile provisioned")
	}
	return &profile, nil
}

// Get returns a profile by id.
func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// ListProfilesParams filters the admin profile listing.
type ListProfilesParams struct {
	Search string
	Role   models.Role
	Limit  int
	Offset int
}

// List returns a page of profiles and the total matching count.
func (s *ProfileService) List(ctx context.Context, params ListProfilesParams) ([]models.Profile, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Profile{})

	if search := strings.TrimSpace(params.Search); search != "" {
		q := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", q, q, q)
	}
	if params.Role != "" {
		query = query.Where("role = ?", params.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []models.Profile
	if err := query.Order("created_at desc").
		Limit(params.Limit).Offset(params.Offset).
		Find(&profiles).Error; err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

// UpdateProfileInput carries optional profile changes. Role is honoured only for admins.
type UpdateProfileInput struct {
	Name  *string
	Phone *string
	Role  *models.Role
}

// Update applies the non-nil fields of in to the profile.
func (s *ProfileService) Update(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*models.Profile, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		updates["name"] = name
	}
	if in.Phone != nil {
		if phone := strings.TrimSpace(*in.Phone); phone != "" {
			updates["phone"] = phone
		} else {
			updates["phone"] = nil
		}
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, ErrInvalidRole
		}
		updates["role"] = *in.Role
	}
	if len(updates) == 0 {
		return nil, ErrNothingToUpdate
	}

	res := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrProfileNotFound
	}

	return s.Get(ctx, id)
}

// Delete removes a profile and its addresses. Profiles with orders cannot be deleted.
func (s *ProfileService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders int64
		if err := tx.Model(&models.Order{}).Where("user_id = ?", id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return ErrInUse
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.Address{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Profile{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProfileNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrInUse
	}
	return err
}

// RegisterInput is a local email/password sign-up.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

// Register creates a customer profile with a bcrypt password hash.
func (s *ProfileService) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	profile := models.Profile{
		Email:        &email,
		Name:         displayName(&identity.Identity{Email: email, Name: in.Name}),
		Role:         models.RoleCustomer,
		PasswordHash: hash,
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		profile.Phone = &phone
	}

	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.WithField("profile_id", profile.ID).Info("profile registered")
	return &profile, nil
}

// Authenticate checks local credentials.
func (s *ProfileService) Authenticate(ctx context.Context, email, password string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(profile.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &profile, nil
}

func displayName(ident *identity.Identity) string {
	if name := strings.TrimSpace(ident.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(ident.Email), "@"); ok && local != "" {
		return local
	}
	return fallbackProfileName
}

// Count returns the number of profiles.
func (s *ProfileService) Count(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Profile{}).Count(&total).Error
	return total, err
}
