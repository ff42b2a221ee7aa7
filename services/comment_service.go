package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"eventhub-api/models"
	"eventhub-api/repositories"
	"eventhub-api/utils"
)

type CommentService struct {
	events    *repositories.EventRepository
	comments  *repositories.CommentRepository
	presenter *Presenter
}

func NewCommentService(db *gorm.DB, presenter *Presenter) *CommentService {
	return &CommentService{
		events:    repositories.NewEventRepository(db),
		comments:  repositories.NewCommentRepository(db),
		presenter: presenter,
	}
}

func (s *CommentService) List(ctx context.Context, viewerID, eventID uint, page utils.Page) ([]models.CommentResponse, int64, error) {
	if err := s.events.Exists(ctx, eventID); err != nil {
		return nil, 0, err
	}
	comments, total, err := s.comments.ListByEvent(ctx, eventID, page.Offset(), page.Size)
	if err != nil {
		return nil, 0, err
	}
	if len(comments) == 0 && page.Number > 1 {
		return nil, 0, utils.NewNotFound("Invalid page.")
	}
	out, err := s.presenter.Comments(ctx, viewerID, comments)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get loads a comment of eventID; a missing event is reported first.
func (s *CommentService) Get(ctx context.Context, eventID, commentID uint) (*models.Comment, error) {
	if err := s.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}
	return s.comments.Get(ctx, eventID, commentID)
}

func (s *CommentService) Retrieve(ctx context.Context, viewerID, eventID, commentID uint) (*models.CommentResponse, error) {
	comment, err := s.Get(ctx, eventID, commentID)
	if err != nil {
		return nil, err
	}
	return s.presenter.Comment(ctx, viewerID, comment)
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		fields := utils.FieldErrors{}
		fields.Add("text", "This field may not be blank.")
		return fields.Err()
	}
	return nil
}

func (s *CommentService) Create(ctx context.Context, authorID, eventID uint, req models.CommentRequest) (*models.CommentResponse, error) {
	if err := s.events.Exists(ctx, eventID); err != nil {
		return nil, err
	}
	if err := validateText(req.Text); err != nil {
		return nil, err
	}

	comment := &models.Comment{EventID: eventID, AuthorID: authorID, Text: req.Text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, authorID, eventID, comment.ID)
}

func (s *CommentService) Update(ctx context.Context, viewerID uint, comment *models.Comment, req models.CommentRequest) (*models.CommentResponse, error) {
	if err := validateText(req.Text); err != nil {
		return nil, err
	}
	if err := s.comments.UpdateText(ctx, comment, req.Text); err != nil {
		return nil, err
	}
	return s.Retrieve(ctx, viewerID, comment.EventID, comment.ID)
}

func (s *CommentService) Delete(ctx context.Context, comment *models.Comment) error {
	return s.comments.Delete(ctx, comment)
}
