package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"eventhub-api/metrics"
	"eventhub-api/models"
	"eventhub-api/repositories"
	"eventhub-api/utils"
)

// RelationService toggles the user→target relations. Create returns the
// target's fresh representation; delete returns nothing.
type RelationService struct {
	events     *repositories.EventRepository
	comments   *repositories.CommentRepository
	users      *repositories.UserRepository
	activities *repositories.ActivityRepository

	favorites          *repositories.RelationRepository[models.FavoriteEvent]
	participations     *repositories.RelationRepository[models.Participation]
	likes              *repositories.RelationRepository[models.Like]
	subscribes         *repositories.RelationRepository[models.Subscribe]
	favoriteActivities *repositories.RelationRepository[models.FavoriteActivity]

	presenter *Presenter
}

func NewRelationService(db *gorm.DB, presenter *Presenter) *RelationService {
	return &RelationService{
		events:             repositories.NewEventRepository(db),
		comments:           repositories.NewCommentRepository(db),
		users:              repositories.NewUserRepository(db),
		activities:         repositories.NewActivityRepository(db),
		favorites:          repositories.NewRelationRepository(db, repositories.FavoriteEventKind),
		participations:     repositories.NewRelationRepository(db, repositories.ParticipationKind),
		likes:              repositories.NewRelationRepository(db, repositories.LikeKind),
		subscribes:         repositories.NewRelationRepository(db, repositories.SubscribeKind),
		favoriteActivities: repositories.NewRelationRepository(db, repositories.FavoriteActivityKind),
		presenter:          presenter,
	}
}

// toggle creates or deletes one relation row and records the outcome.
func toggle[R any](ctx context.Context, repo *repositories.RelationRepository[R], userID, targetID uint, create bool) error {
	var err error
	action := "delete"
	if create {
		action = "create"
		err = repo.Create(ctx, userID, targetID)
	} else {
		err = repo.Delete(ctx, userID, targetID)
	}

	result := "ok"
	if err != nil {
		result = utils.KindOf(err).String()
	}
	metrics.RecordRelation(repo.Kind().Name, action, result)
	return err
}

func (s *RelationService) SetFavoriteEvent(ctx context.Context, userID, eventID uint, on bool) (*models.EventResponse, error) {
	return toggleEvent(ctx, s, s.favorites, userID, eventID, on)
}

func (s *RelationService) SetParticipation(ctx context.Context, userID, eventID uint, on bool) (*models.EventResponse, error) {
	return toggleEvent(ctx, s, s.participations, userID, eventID, on)
}

func toggleEvent[R any](ctx context.Context, s *RelationService, repo *repositories.RelationRepository[R], userID, eventID uint, on bool) (*models.EventResponse, error) {
	if err := s.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}
	if err := toggle(ctx, repo, userID, eventID, on); err != nil {
		return nil, err
	}
	if !on {
		return nil, nil
	}
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.presenter.Event(ctx, userID, event)
}

// SetLike likes or unlikes a comment of eventID. Liking twice and unliking a
// comment that was not liked are both validation errors.
func (s *RelationService) SetLike(ctx context.Context, userID, eventID, commentID uint, on bool) (*models.CommentResponse, error) {
	if err := s.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}
	comment, err := s.comments.Get(ctx, eventID, commentID)
	if err != nil {
		return nil, err
	}

	err = toggle(ctx, s.likes, userID, commentID, on)
	switch {
	case errors.Is(err, utils.ErrConflict):
		return nil, utils.NewValidationError("You have already liked this comment.")
	case errors.Is(err, utils.ErrNotFound):
		return nil, utils.NewValidationError("You have not liked this comment yet.")
	case err != nil:
		return nil, err
	}
	if !on {
		return nil, nil
	}
	return s.presenter.Comment(ctx, userID, comment)
}

// SetSubscription follows or unfollows authorID. Following oneself is refused
// before any row is looked at.
func (s *RelationService) SetSubscription(ctx context.Context, userID, authorID uint, on bool) (*models.UserResponse, error) {
	author, err := s.users.Get(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if author.ID == userID {
		return nil, utils.NewValidationError("Subscribing to yourself is not allowed.")
	}
	if err := toggle(ctx, s.subscribes, userID, authorID, on); err != nil {
		return nil, err
	}
	if !on {
		return nil, nil
	}
	return s.presenter.User(ctx, userID, author)
}

func (s *RelationService) SetFavoriteActivity(ctx context.Context, userID, activityID uint, on bool) (*models.Activity, error) {
	activity, err := s.activities.Get(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := toggle(ctx, s.favoriteActivities, userID, activityID, on); err != nil {
		return nil, err
	}
	if !on {
		return nil, nil
	}
	return activity, nil
}
