// File: /controllers/auth_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub-api/logging"
	"eventhub-api/models"
	"eventhub-api/permissions"
	"eventhub-api/services"
	"eventhub-api/utils"
)

type AuthController struct {
	users    *services.UserService
	enforcer *permissions.Enforcer
}

func NewAuthController(users *services.UserService, enforcer *permissions.Enforcer) *AuthController {
	return &AuthController{users: users, enforcer: enforcer}
}

func (ac *AuthController) Login(c *gin.Context) {
	if _, err := authorize(c, ac.enforcer, permissions.NoOwner, permissions.ResourceAuth, "login"); err != nil {
		utils.RespondError(c, err)
		return
	}

	var req models.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		utils.RespondError(c, err)
		return
	}

	token, err := ac.users.Login(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.TokenResponse{AuthToken: token})
}

// Logout acknowledges the client dropping its token. Tokens are stateless
// and stay valid until they expire.
func (ac *AuthController) Logout(c *gin.Context) {
	user, err := authorize(c, ac.enforcer, permissions.NoOwner, permissions.ResourceAuth, "logout")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	logging.Ctx(c.Request.Context()).Info().Uint("user_id", user.ID).Msg("user logged out")
	c.Status(http.StatusNoContent)
}
