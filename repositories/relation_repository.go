package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"eventhub-api/models"
	"eventhub-api/utils"
)

// RelationKind describes one user→target relation table.
type RelationKind[R any] struct {
	Name string
	// TargetColumn is the foreign key column pointing at the target.
	TargetColumn string
	New          func(userID, targetID uint) R
}

var (
	FavoriteEventKind = RelationKind[models.FavoriteEvent]{
		Name:         "favorite",
		TargetColumn: "event_id",
		New: func(userID, eventID uint) models.FavoriteEvent {
			return models.FavoriteEvent{UserID: userID, EventID: eventID}
		},
	}
	ParticipationKind = RelationKind[models.Participation]{
		Name:         "participation",
		TargetColumn: "event_id",
		New: func(userID, eventID uint) models.Participation {
			return models.Participation{UserID: userID, EventID: eventID}
		},
	}
	LikeKind = RelationKind[models.Like]{
		Name:         "like",
		TargetColumn: "comment_id",
		New: func(userID, commentID uint) models.Like {
			return models.Like{UserID: userID, CommentID: commentID}
		},
	}
	SubscribeKind = RelationKind[models.Subscribe]{
		Name:         "subscribe",
		TargetColumn: "author_id",
		New: func(userID, authorID uint) models.Subscribe {
			return models.Subscribe{UserID: userID, AuthorID: authorID}
		},
	}
	FavoriteActivityKind = RelationKind[models.FavoriteActivity]{
		Name:         "favorite_activity",
		TargetColumn: "activity_id",
		New: func(userID, activityID uint) models.FavoriteActivity {
			return models.FavoriteActivity{UserID: userID, ActivityID: activityID}
		},
	}
)

const (
	msgRelationExists  = "Object already added."
	msgRelationMissing = "Object does not exist."
)

type RelationRepository[R any] struct {
	db   *gorm.DB
	kind RelationKind[R]
}

func NewRelationRepository[R any](db *gorm.DB, kind RelationKind[R]) *RelationRepository[R] {
	return &RelationRepository[R]{db: db, kind: kind}
}

func (r *RelationRepository[R]) Kind() RelationKind[R] {
	return r.kind
}

func (r *RelationRepository[R]) scope(ctx context.Context, userID, targetID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(new(R)).
		Where("user_id = ?", userID).
		Where(r.kind.TargetColumn+" = ?", targetID)
}

// Exists reports whether userID already holds the relation to targetID.
func (r *RelationRepository[R]) Exists(ctx context.Context, userID, targetID uint) (bool, error) {
	var count int64
	if err := r.scope(ctx, userID, targetID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the relation. An existing row, found up front or reported by
// the unique index on insert, is a Conflict.
func (r *RelationRepository[R]) Create(ctx context.Context, userID, targetID uint) error {
	exists, err := r.Exists(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return utils.NewConflict(msgRelationExists)
	}

	row := r.kind.New(userID, targetID)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.NewConflict(msgRelationExists)
		}
		return err
	}
	return nil
}

// Delete removes the relation, returning NotFound when there was none.
func (r *RelationRepository[R]) Delete(ctx context.Context, userID, targetID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(r.kind.TargetColumn+" = ?", targetID).
		Delete(new(R))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.NewNotFound(msgRelationMissing)
	}
	return nil
}

// CountByTarget counts relations pointing at each target.
func (r *RelationRepository[R]) CountByTarget(ctx context.Context, targetIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		TargetID uint
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(new(R)).
		Select(r.kind.TargetColumn+" AS target_id, COUNT(*) AS total").
		Where(r.kind.TargetColumn+" IN ?", targetIDs).
		Group(r.kind.TargetColumn).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TargetID] = row.Total
	}
	return out, nil
}

// Held returns the subset of targetIDs userID holds the relation to.
func (r *RelationRepository[R]) Held(ctx context.Context, userID uint, targetIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if userID == 0 || len(targetIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(new(R)).
		Where("user_id = ?", userID).
		Where(r.kind.TargetColumn+" IN ?", targetIDs).
		Pluck(r.kind.TargetColumn, &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
