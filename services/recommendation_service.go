package services

import (
	"context"

	"gorm.io/gorm"

	"eventhub-api/models"
	"eventhub-api/repositories"
)

// Recommend returns the events sharing at least one activity with favorites,
// each once, in the order given.
func Recommend(favorites []uint, events []models.Event) []models.Event {
	out := []models.Event{}
	if len(favorites) == 0 {
		return out
	}
	liked := make(map[uint]struct{}, len(favorites))
	for _, id := range favorites {
		liked[id] = struct{}{}
	}
	for _, e := range events {
		for _, a := range e.Activities {
			if _, ok := liked[a.ID]; ok {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

type RecommendationService struct {
	users     *repositories.UserRepository
	events    *repositories.EventRepository
	presenter *Presenter
	// limit caps the result; 0 means no cap.
	limit int
}

func NewRecommendationService(db *gorm.DB, presenter *Presenter, limit int) *RecommendationService {
	return &RecommendationService{
		users:     repositories.NewUserRepository(db),
		events:    repositories.NewEventRepository(db),
		presenter: presenter,
		limit:     limit,
	}
}

// ForUser scans every event against the user's favorite activities.
func (s *RecommendationService) ForUser(ctx context.Context, userID uint) ([]models.EventResponse, error) {
	favorites, err := s.users.FavoriteActivityIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(favorites) == 0 {
		return []models.EventResponse{}, nil
	}

	events, err := s.events.All(ctx)
	if err != nil {
		return nil, err
	}
	picked := Recommend(favorites, events)
	if s.limit > 0 && len(picked) > s.limit {
		picked = picked[:s.limit]
	}
	return s.presenter.Events(ctx, userID, picked)
}
