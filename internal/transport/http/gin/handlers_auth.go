package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/tixhub/internal/service"
)

// @Summary  Log in
// @Tags     auth
// @Param    req body  LoginRequest true "username or email and password"
// @Success  200 {object} TokenResponse
// @Failure  401 {object} ErrorResponse
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if !bindJSON(c, &req) {
			return
		}

		login := req.Username
		if login == "" {
			login = req.Email
		}
		if login == "" {
			writeViolations(c, Violation{PropertyPath: "username", Message: "This value should not be blank."})
			return
		}

		tokens, err := svcs.Auth.Login(c.Request.Context(), login, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, TokenResponse{Token: tokens.Token, RefreshToken: tokens.RefreshToken})
	}
}

// @Summary  Refresh tokens
// @Tags     auth
// @Param    req body  RefreshRequest true "refresh token"
// @Success  200 {object} TokenResponse
// @Failure  401 {object} ErrorResponse
// @Router   /token/refresh [post]
func handleRefresh(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		if !bindJSON(c, &req) {
			return
		}

		tokens, err := svcs.Auth.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, TokenResponse{Token: tokens.Token, RefreshToken: tokens.RefreshToken})
	}
}

// @Summary  Revoke a refresh token
// @Tags     auth
// @Param    req body  LogoutRequest false "refresh token"
// @Success  204
// @Router   /logout [post]
func handleLogout(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LogoutRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}

		if err := svcs.Auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Register a user
// @Tags     auth
// @Param    req body  RegisterRequest true "payload"
// @Success  201 {object} UserResponse
// @Failure  422 {object} ErrorResponse
// @Router   /users [post]
func handleRegister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if !bindJSON(c, &req) {
			return
		}

		u, err := svcs.Auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toUserResponse(u))
	}
}

// @Summary  Current user
// @Tags     auth
// @Security BearerAuth
// @Success  200 {object} UserResponse
// @Failure  401 {object} ErrorResponse
// @Router   /profile [get]
func handleProfile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := claimsFrom(c)

		u, err := svcs.Auth.Profile(c.Request.Context(), claims.UserID())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toUserResponse(u))
	}
}
