package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"eventhub-api/models"
	"eventhub-api/utils"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) preload(q *gorm.DB) *gorm.DB {
	return q.Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("activities.id") })
}

func (r *UserRepository) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.preload(r.db.WithContext(ctx)).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFound("User not found.")
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFound("User not found.")
		}
		return nil, err
	}
	return &user, nil
}

// List returns active users ordered by username.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&models.User{}).Where("is_active = ?", true)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	err := r.preload(db).Where("is_active = ?", true).
		Order("username").Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Subscriptions returns the authors userID follows, ordered by username.
func (r *UserRepository) Subscriptions(ctx context.Context, userID uint, offset, limit int) ([]models.User, int64, error) {
	db := r.db.WithContext(ctx)
	authors := db.Model(&models.Subscribe{}).Select("author_id").Where("user_id = ?", userID)

	var total int64
	if err := db.Model(&models.User{}).Where("id IN (?)", authors).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	var users []models.User
	err := r.preload(db).Where("id IN (?)", authors).
		Order("username").Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	return users, total, nil
}

// FavoriteActivityIDs returns the ids of userID's favorite activities.
func (r *UserRepository) FavoriteActivityIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.FavoriteActivity{}).
		Where("user_id = ?", userID).
		Order("activity_id").
		Pluck("activity_id", &ids).Error
	return ids, err
}

// Create inserts a new account. Duplicate username/email/phone is a Conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("Activities").Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.NewConflict("A user with this username, email or phone number already exists.")
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ProfileUpdate carries changed profile fields; nil leaves a field untouched.
type ProfileUpdate struct {
	Username    *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Photo       *string
	BirthYear   *int
	Bio         *string
	ActivityIDs []uint
	// ReplaceActivities clears the favorites even when ActivityIDs is empty.
	ReplaceActivities bool
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User, upd ProfileUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{}
		if upd.Username != nil {
			fields["username"] = *upd.Username
		}
		if upd.FirstName != nil {
			fields["first_name"] = *upd.FirstName
		}
		if upd.LastName != nil {
			fields["last_name"] = *upd.LastName
		}
		if upd.PhoneNumber != nil {
			fields["phone_number"] = *upd.PhoneNumber
		}
		if upd.Photo != nil {
			fields["photo"] = *upd.Photo
		}
		if upd.BirthYear != nil {
			fields["birth_year"] = *upd.BirthYear
		}
		if upd.Bio != nil {
			fields["bio"] = *upd.Bio
		}
		if len(fields) > 0 {
			if err := tx.Model(user).Updates(fields).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return utils.NewConflict("A user with this username or phone number already exists.")
				}
				return fmt.Errorf("update user: %w", err)
			}
		}

		if !upd.ReplaceActivities {
			return nil
		}
		activities, err := loadActivities(tx, upd.ActivityIDs)
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.FavoriteActivity{}).Error; err != nil {
			return fmt.Errorf("clear favorite activities: %w", err)
		}
		for _, a := range activities {
			if err := tx.Create(&models.FavoriteActivity{UserID: user.ID, ActivityID: a.ID}).Error; err != nil {
				return fmt.Errorf("add favorite activity: %w", err)
			}
		}
		return nil
	})
}

func (r *UserRepository) Activate(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"is_active":          true,
		"activation_token":   nil,
		"activation_expires": nil,
	}).Error
}

// Delete removes the account, its events and comments and every relation row
// that mentions it.
func (r *UserRepository) Delete(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteUsers(tx, []uint{user.ID})
	})
}

// DeleteExpiredInactive removes never-activated accounts whose activation
// window closed before now. It returns the number of accounts removed.
func (r *UserRepository) DeleteExpiredInactive(ctx context.Context, now time.Time) (int, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ? AND activation_expires IS NOT NULL AND activation_expires < ?", false, now.UTC()).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteUsers(tx, ids)
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func deleteUsers(tx *gorm.DB, ids []uint) error {
	var eventIDs []uint
	if err := tx.Model(&models.Event{}).Where("author_id IN ?", ids).Pluck("id", &eventIDs).Error; err != nil {
		return err
	}
	if err := deleteEvents(tx, eventIDs); err != nil {
		return err
	}

	ownComments := tx.Model(&models.Comment{}).Select("id").Where("author_id IN ?", ids)
	steps := []struct {
		model interface{}
		query string
		args  []interface{}
	}{
		{&models.Like{}, "comment_id IN (?) OR user_id IN ?", []interface{}{ownComments, ids}},
		{&models.Comment{}, "author_id IN ?", []interface{}{ids}},
		{&models.Participation{}, "user_id IN ?", []interface{}{ids}},
		{&models.FavoriteEvent{}, "user_id IN ?", []interface{}{ids}},
		{&models.FavoriteActivity{}, "user_id IN ?", []interface{}{ids}},
		{&models.Subscribe{}, "user_id IN ? OR author_id IN ?", []interface{}{ids, ids}},
		{&models.User{}, "id IN ?", []interface{}{ids}},
	}
	for _, s := range steps {
		if err := tx.Where(s.query, s.args...).Delete(s.model).Error; err != nil {
			return fmt.Errorf("delete %T: %w", s.model, err)
		}
	}
	return nil
}
