package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"eventhub-api/middleware"
	"eventhub-api/models"
	"eventhub-api/permissions"
	"eventhub-api/utils"
	"eventhub-api/validation"
)

// paramID reads a positive integer path parameter. Anything else is a 404,
// the same as an unknown id.
func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, utils.NewNotFound("Not found.")
	}
	return uint(id), nil
}

func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return validation.FromBindingError(err)
	}
	return nil
}

// parseBool accepts true/false/1/0 in any case. ok is false when the
// parameter is absent.
func parseBool(raw string) (value, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return false, false, nil
	case "true", "1":
		return true, true, nil
	case "false", "0":
		return false, true, nil
	}
	return false, false, utils.NewValidationError("Must be a valid boolean.")
}

// authorize checks the caller against the policy for an object owned by
// ownerID (permissions.NoOwner for collections).
func authorize(c *gin.Context, enforcer *permissions.Enforcer, ownerID uint, resource, action string) (*models.User, error) {
	user := middleware.CurrentUser(c)
	if err := enforcer.Authorize(user, ownerID, resource, action); err != nil {
		return nil, err
	}
	return user, nil
}

func viewerID(c *gin.Context) uint {
	return middleware.CurrentUserID(c)
}
