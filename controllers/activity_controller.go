package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub-api/permissions"
	"eventhub-api/repositories"
	"eventhub-api/services"
	"eventhub-api/utils"
)

type ActivityController struct {
	activities *repositories.ActivityRepository
	relations  *services.RelationService
	enforcer   *permissions.Enforcer
}

func NewActivityController(activities *repositories.ActivityRepository, relations *services.RelationService, enforcer *permissions.Enforcer) *ActivityController {
	return &ActivityController{activities: activities, relations: relations, enforcer: enforcer}
}

// GetActivities lists activities, optionally narrowed by ?name= prefix.
func (ac *ActivityController) GetActivities(c *gin.Context) {
	if _, err := authorize(c, ac.enforcer, permissions.NoOwner, permissions.ResourceActivity, "list"); err != nil {
		utils.RespondError(c, err)
		return
	}
	activities, err := ac.activities.List(c.Request.Context(), c.Query("name"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

func (ac *ActivityController) GetActivity(c *gin.Context) {
	if _, err := authorize(c, ac.enforcer, permissions.NoOwner, permissions.ResourceActivity, "retrieve"); err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	activity, err := ac.activities.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

func (ac *ActivityController) AddFavorite(c *gin.Context) {
	ac.setFavorite(c, true)
}

func (ac *ActivityController) RemoveFavorite(c *gin.Context) {
	ac.setFavorite(c, false)
}

func (ac *ActivityController) setFavorite(c *gin.Context, on bool) {
	user, err := authorize(c, ac.enforcer, permissions.NoOwner, permissions.ResourceActivity, "favorite")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := paramID(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	activity, err := ac.relations.SetFavoriteActivity(c.Request.Context(), user.ID, id, on)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !on {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, activity)
}
