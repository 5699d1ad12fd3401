package handler

import (
	"errors"
	"net/http"

	"github.com/votranphi/heartistry-user-api/internal/service"
	"github.com/votranphi/heartistry-user-api/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves token issuance.
type AuthHandler struct {
	Identity *service.Identity
}

func NewAuthHandler(identity *service.Identity) *AuthHandler {
	return &AuthHandler{Identity: identity}
}

type tokenReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token handles POST /auth/token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	accessToken, err := h.Identity.Login(req.Username, req.Password, c.ClientIP())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
}

// writeServiceError maps a service failure onto the wire envelope.
func writeServiceError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		util.Message(c, svcErr.Status, svcErr.Message)
		return
	}
	util.Message(c, http.StatusInternalServerError, "Internal Server Error")
}
