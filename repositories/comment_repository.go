package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"eventhub-api/models"
	"eventhub-api/utils"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// ListByEvent returns one page of an event's comments, newest first.
func (r *CommentRepository) ListByEvent(ctx context.Context, eventID uint, offset, limit int) ([]models.Comment, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Comment{}).Where("event_id = ?", eventID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	var comments []models.Comment
	err := db.Preload("Author").
		Where("event_id = ?", eventID).
		Order(models.CommentOrder).
		Offset(offset).Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	return comments, total, nil
}

// Latest returns up to n newest comments for each of the given events in one
// windowed query.
func (r *CommentRepository) Latest(ctx context.Context, eventIDs []uint, n int) (map[uint][]models.Comment, error) {
	out := make(map[uint][]models.Comment, len(eventIDs))
	if len(eventIDs) == 0 || n <= 0 {
		return out, nil
	}

	ranked := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("comments.*, ROW_NUMBER() OVER (PARTITION BY comments.event_id ORDER BY comments.id DESC) AS comment_rank").
		Where("comments.event_id IN ?", eventIDs)

	var comments []models.Comment
	err := r.db.WithContext(ctx).Table("(?) AS comments", ranked).
		Where("comment_rank <= ?", n).
		Order(models.CommentOrder).
		Preload("Author").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		out[c.EventID] = append(out[c.EventID], c)
	}
	return out, nil
}

// Get loads a comment that must belong to eventID.
func (r *CommentRepository) Get(ctx context.Context, eventID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("Author").
		Where("event_id = ?", eventID).
		First(&comment, commentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFound("Comment not found.")
		}
		return nil, err
	}
	return &comment, nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) UpdateText(ctx context.Context, comment *models.Comment, text string) error {
	if err := r.db.WithContext(ctx).Model(comment).Update("text", text).Error; err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// Delete removes the comment and its likes.
func (r *CommentRepository) Delete(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", comment.ID).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Delete(comment).Error; err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		return nil
	})
}
