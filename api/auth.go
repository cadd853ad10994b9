package api

import (
	"errors"
	"net/http"
	"time"

	"davo_admin/middleware"
	"davo_admin/models"
	"davo_admin/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LoginRequest тело запроса входа в панель
type LoginRequest struct {
	Login    string `json:"login" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=3,max=64"`
}

// LoginResponse данные новой сессии
type LoginResponse struct {
	SessionID string      `json:"sessionId"`
	Role      models.Role `json:"role"`
	Username  string      `json:"username"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// AuthAPI вход и выход из панели
type AuthAPI struct {
	sessions *services.SessionService
	logger   *logrus.Logger
}

// NewAuthAPI создает новый экземпляр AuthAPI
func NewAuthAPI(sessions *services.SessionService, logger *logrus.Logger) *AuthAPI {
	return &AuthAPI{sessions: sessions, logger: logger}
}

// RegisterRoutes регистрирует маршруты авторизации
func (aa *AuthAPI) RegisterRoutes(public, protected *gin.RouterGroup, loginLimiter gin.HandlerFunc) {
	public.POST("/auth/login", loginLimiter, aa.Login)

	protected.POST("/auth/logout", aa.Logout)
	protected.GET("/auth/me", aa.Me)
}

// Login авторизует пользователя в Davo API и создает сессию панели
func (aa *AuthAPI) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	aa.logger.WithFields(logrus.Fields{
		"operation":  "login_attempt",
		"username":   req.Login,
		"ip_address": c.ClientIP(),
		"user_agent": c.GetHeader("User-Agent"),
	}).Info("AUTH_LOG")

	session, err := aa.sessions.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		var apiErr *services.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			middleware.AbortWithError(c, http.StatusUnauthorized, middleware.CodeInvalidLogin)
			return
		}
		respondError(c, aa.logger, err)
		return
	}

	resp := LoginResponse{
		SessionID: session.ID,
		Role:      session.Role,
		Username:  session.Username,
	}
	if !session.ExpiresAt.IsZero() {
		resp.ExpiresAt = &session.ExpiresAt
	}
	respondSuccess(c, resp)
}

// Logout завершает сессию
func (aa *AuthAPI) Logout(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	if err := aa.sessions.Logout(c.Request.Context(), session.ID); err != nil {
		respondError(c, aa.logger, err)
		return
	}
	respondSuccess(c, gin.H{"loggedOut": true})
}

// Me возвращает данные текущей сессии
func (aa *AuthAPI) Me(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	respondSuccess(c, session)
}
