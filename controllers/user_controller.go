// File: /controllers/user_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub-api/models"
	"eventhub-api/permissions"
	"eventhub-api/services"
	"eventhub-api/utils"
)

type UserController struct {
	users           *services.UserService
	relations       *services.RelationService
	recommendations *services.RecommendationService
	enforcer        *permissions.Enforcer
	pageSize        int
}

func NewUserController(users *services.UserService, relations *services.RelationService, recommendations *services.RecommendationService, enforcer *permissions.Enforcer, pageSize int) *UserController {
	return &UserController{
		users:           users,
		relations:       relations,
		recommendations: recommendations,
		enforcer:        enforcer,
		pageSize:        pageSize,
	}
}

func (uc *UserController) Register(c *gin.Context) {
	if _, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "create"); err != nil {
		utils.RespondError(c, err)
		return
	}

	var req models.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}

	user, err := uc.users.Register(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (uc *UserController) Activate(c *gin.Context) {
	if _, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "activate"); err != nil {
		utils.RespondError(c, err)
		return
	}

	var req models.ActivationRequest
	if err := bindJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := uc.users.Activate(c.Request.Context(), req); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (uc *UserController) GetUsers(c *gin.Context) {
	user, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "list")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	page, err := utils.ParsePage(c, uc.pageSize)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	users, total, err := uc.users.List(c.Request.Context(), user.ID, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SendPaginated(c, users, page, total)
}

func (uc *UserController) GetUser(c *gin.Context) {
	user, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "retrieve")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	resp, err := uc.users.Retrieve(c.Request.Context(), user.ID, id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (uc *UserController) GetMe(c *gin.Context) {
	user, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "me")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	resp, err := uc.users.Retrieve(c.Request.Context(), user.ID, user.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (uc *UserController) UpdateMe(c *gin.Context) {
	user, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "me")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	uc.update(c, user.ID, user, c.Request.Method == http.MethodPatch)
}

// UpdateUser serves PUT and PATCH on /users/:id/; only the user may edit
// their own profile.
func (uc *UserController) UpdateUser(c *gin.Context) {
	target, ok := uc.loadOwned(c, "update")
	if !ok {
		return
	}
	uc.update(c, viewerID(c), target, c.Request.Method == http.MethodPatch)
}

func (uc *UserController) update(c *gin.Context, viewer uint, target *models.User, partial bool) {
	var req models.ProfileRequest
	if err := bindJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}

	resp, err := uc.users.UpdateProfile(c.Request.Context(), viewer, target, req, partial)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	target, ok := uc.loadOwned(c, "delete")
	if !ok {
		return
	}
	if err := uc.users.Delete(c.Request.Context(), target); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (uc *UserController) loadOwned(c *gin.Context, action string) (*models.User, bool) {
	// Anonymous callers learn nothing about which ids exist.
	if viewerID(c) == 0 {
		utils.RespondError(c, utils.NewUnauthenticated("Authentication credentials were not provided."))
		return nil, false
	}
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	target, err := uc.users.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	if _, err := authorize(c, uc.enforcer, target.ID, permissions.ResourceUser, action); err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	return target, true
}

func (uc *UserController) Subscribe(c *gin.Context) {
	uc.setSubscription(c, true)
}

func (uc *UserController) Unsubscribe(c *gin.Context) {
	uc.setSubscription(c, false)
}

func (uc *UserController) setSubscription(c *gin.Context, on bool) {
	user, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "subscribe")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	author, err := uc.relations.SetSubscription(c.Request.Context(), user.ID, id, on)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !on {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, author)
}

// GetSubscriptions lists the authors the caller follows.
func (uc *UserController) GetSubscriptions(c *gin.Context) {
	user, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "subscriptions")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	page, err := utils.ParsePage(c, uc.pageSize)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	users, total, err := uc.users.Subscriptions(c.Request.Context(), user.ID, page)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SendPaginated(c, users, page, total)
}

func (uc *UserController) GetRecommendations(c *gin.Context) {
	user, err := authorize(c, uc.enforcer, permissions.NoOwner, permissions.ResourceUser, "recommendations")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	events, err := uc.recommendations.ForUser(c.Request.Context(), user.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
