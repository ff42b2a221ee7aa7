package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"eventhub-api/models"
	"eventhub-api/utils"
)

// '!' escapes LIKE wildcards; it needs no quoting in either dialect.
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// List returns activities ordered by name, optionally those whose name starts
// with prefix.
func (r *ActivityRepository) List(ctx context.Context, prefix string) ([]models.Activity, error) {
	q := r.db.WithContext(ctx).Order("name")
	if prefix != "" {
		q = q.Where("name LIKE ? ESCAPE '!'", likeEscaper.Replace(prefix)+"%")
	}
	var activities []models.Activity
	if err := q.Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *ActivityRepository) Get(ctx context.Context, id uint) (*models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFound("Activity not found.")
		}
		return nil, err
	}
	return &activity, nil
}
