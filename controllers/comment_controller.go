// File: /controllers/comment_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub-api/models"
	"eventhub-api/permissions"
	"eventhub-api/services"
	"eventhub-api/utils"
)

type CommentController struct {
	comments  *services.CommentService
	relations *services.RelationService
	enforcer  *permissions.Enforcer
	pageSize  int
}

func NewCommentController(comments *services.CommentService, relations *services.RelationService, enforcer *permissions.Enforcer, pageSize int) *CommentController {
	return &CommentController{comments: comments, relations: relations, enforcer: enforcer, pageSize: pageSize}
}

// eventParam supports both /events/:id/comments/... and the
// /comments/:event_id/... alias.
func eventParam(c *gin.Context) (uint, error) {
	if c.Param("event_id") != "" {
		return paramID(c, "event_id")
	}
	return paramID(c, "id")
}

func (cc *CommentController) GetComments(c *gin.Context) {
	if _, err := authorize(c, cc.enforcer, permissions.NoOwner, permissions.ResourceComment, "list"); err != nil {
		utils.RespondError(c, err)
		return
	}
	eventID, err := eventParam(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	page, err := utils.ParsePage(c, cc.pageSize)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	comments, total, err := cc.comments.List(c.Request.Context(), viewerID(c), eventID, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SendPaginated(c, comments, page, total)
}

func (cc *CommentController) CreateComment(c *gin.Context) {
	user, err := authorize(c, cc.enforcer, permissions.NoOwner, permissions.ResourceComment, "create")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	eventID, err := eventParam(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req models.CommentRequest
	if err := bindJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}

	comment, err := cc.comments.Create(c.Request.Context(), user.ID, eventID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (cc *CommentController) GetComment(c *gin.Context) {
	if _, err := authorize(c, cc.enforcer, permissions.NoOwner, permissions.ResourceComment, "retrieve"); err != nil {
		utils.RespondError(c, err)
		return
	}
	eventID, err := eventParam(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	comment, err := cc.comments.Retrieve(c.Request.Context(), viewerID(c), eventID, commentID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// UpdateComment serves PUT and PATCH; text is the only writable field.
func (cc *CommentController) UpdateComment(c *gin.Context) {
	comment, ok := cc.loadOwned(c, "update")
	if !ok {
		return
	}

	var req models.CommentRequest
	if err := bindJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}

	updated, err := cc.comments.Update(c.Request.Context(), viewerID(c), comment, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (cc *CommentController) DeleteComment(c *gin.Context) {
	comment, ok := cc.loadOwned(c, "delete")
	if !ok {
		return
	}
	if err := cc.comments.Delete(c.Request.Context(), comment); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (cc *CommentController) loadOwned(c *gin.Context, action string) (*models.Comment, bool) {
	eventID, err := eventParam(c)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	comment, err := cc.comments.Get(c.Request.Context(), eventID, commentID)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	if _, err := authorize(c, cc.enforcer, comment.AuthorID, permissions.ResourceComment, action); err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	return comment, true
}

func (cc *CommentController) Like(c *gin.Context) {
	cc.setLike(c, true)
}

func (cc *CommentController) Unlike(c *gin.Context) {
	cc.setLike(c, false)
}

func (cc *CommentController) setLike(c *gin.Context, on bool) {
	user, err := authorize(c, cc.enforcer, permissions.NoOwner, permissions.ResourceComment, "like")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	eventID, err := eventParam(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	comment, err := cc.relations.SetLike(c.Request.Context(), user.ID, eventID, commentID, on)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !on {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
