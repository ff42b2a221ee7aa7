package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"eventhub-api/models"
	"eventhub-api/repositories"
)

// latestComments is how many comments an event representation embeds.
const latestComments = 3

// Presenter builds API representations, batching the per-viewer flags and
// counters for a whole page at once.
type Presenter struct {
	comments       *repositories.CommentRepository
	favorites      *repositories.RelationRepository[models.FavoriteEvent]
	participations *repositories.RelationRepository[models.Participation]
	likes          *repositories.RelationRepository[models.Like]
	subscribes     *repositories.RelationRepository[models.Subscribe]
	now            func() time.Time
}

func NewPresenter(db *gorm.DB) *Presenter {
	return &Presenter{
		comments:       repositories.NewCommentRepository(db),
		favorites:      repositories.NewRelationRepository(db, repositories.FavoriteEventKind),
		participations: repositories.NewRelationRepository(db, repositories.ParticipationKind),
		likes:          repositories.NewRelationRepository(db, repositories.LikeKind),
		subscribes:     repositories.NewRelationRepository(db, repositories.SubscribeKind),
		now:            time.Now,
	}
}

func (p *Presenter) Event(ctx context.Context, viewerID uint, event *models.Event) (*models.EventResponse, error) {
	out, err := p.Events(ctx, viewerID, []models.Event{*event})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (p *Presenter) Events(ctx context.Context, viewerID uint, events []models.Event) ([]models.EventResponse, error) {
	out := make([]models.EventResponse, 0, len(events))
	if len(events) == 0 {
		return out, nil
	}

	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}

	favorite, err := p.favorites.Held(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	participating, err := p.participations.Held(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	participants, err := p.participations.CountByTarget(ctx, ids)
	if err != nil {
		return nil, err
	}
	latest, err := p.comments.Latest(ctx, ids, latestComments)
	if err != nil {
		return nil, err
	}

	var embedded []models.Comment
	for _, id := range ids {
		embedded = append(embedded, latest[id]...)
	}
	rendered, err := p.Comments(ctx, viewerID, embedded)
	if err != nil {
		return nil, err
	}
	byEvent := make(map[uint][]models.CommentResponse, len(ids))
	for _, c := range rendered {
		byEvent[c.Event] = append(byEvent[c.Event], c)
	}

	for _, e := range events {
		activities := e.Activities
		if activities == nil {
			activities = []models.Activity{}
		}
		comments := byEvent[e.ID]
		if comments == nil {
			comments = []models.CommentResponse{}
		}
		out = append(out, models.EventResponse{
			ID:                e.ID,
			Name:              e.Name,
			Description:       e.Description,
			Activity:          activities,
			Datetime:          e.Datetime.Format(models.DateFormat),
			Author:            models.NewUserBrief(e.Author),
			Duration:          e.Duration,
			Location:          models.NewLocationResponse(e.Location),
			Comments:          comments,
			IsFavorite:        favorite[e.ID],
			IsParticipate:     participating[e.ID],
			ParticipantsCount: participants[e.ID],
		})
	}
	return out, nil
}

func (p *Presenter) Comment(ctx context.Context, viewerID uint, comment *models.Comment) (*models.CommentResponse, error) {
	out, err := p.Comments(ctx, viewerID, []models.Comment{*comment})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

func (p *Presenter) Comments(ctx context.Context, viewerID uint, comments []models.Comment) ([]models.CommentResponse, error) {
	out := make([]models.CommentResponse, 0, len(comments))
	if len(comments) == 0 {
		return out, nil
	}

	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	liked, err := p.likes.Held(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	counts, err := p.likes.CountByTarget(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, c := range comments {
		out = append(out, models.CommentResponse{
			ID:         c.ID,
			Author:     models.NewUserBrief(c.Author),
			Text:       c.Text,
			PubDate:    c.PubDate.Format(models.DateFormat),
			Event:      c.EventID,
			IsLiked:    liked[c.ID],
			LikesCount: counts[c.ID],
		})
	}
	return out, nil
}

func (p *Presenter) User(ctx context.Context, viewerID uint, user *models.User) (*models.UserResponse, error) {
	out, err := p.Users(ctx, viewerID, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Users expects Activities to be preloaded.
func (p *Presenter) Users(ctx context.Context, viewerID uint, users []models.User) ([]models.UserResponse, error) {
	out := make([]models.UserResponse, 0, len(users))
	if len(users) == 0 {
		return out, nil
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	subscribed, err := p.subscribes.Held(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	subscribers, err := p.subscribes.CountByTarget(ctx, ids)
	if err != nil {
		return nil, err
	}

	year := p.now().Year()
	for _, u := range users {
		activityIDs := make([]uint, 0, len(u.Activities))
		for _, a := range u.Activities {
			activityIDs = append(activityIDs, a.ID)
		}
		out = append(out, models.UserResponse{
			ID:               u.ID,
			Username:         u.Username,
			Email:            u.Email,
			FirstName:        u.FirstName,
			LastName:         u.LastName,
			PhoneNumber:      u.PhoneNumber,
			Photo:            u.Photo,
			Age:              u.Age(year),
			Bio:              u.Bio,
			IsSubscribed:     subscribed[u.ID],
			SubscribersCount: subscribers[u.ID],
			Activities:       activityIDs,
		})
	}
	return out, nil
}
