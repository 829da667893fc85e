package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gogame-presence/apps/presence-service/model"
	"gogame-presence/apps/presence-service/service"
	"gogame-presence/pkg/httpx"
	"gogame-presence/pkg/logger"
)

// HTTPHandler HTTP处理器
type HTTPHandler struct {
	service *service.Service
	logger  logger.Logger
}

// NewHTTPHandler 创建HTTP处理器
func NewHTTPHandler(service *service.Service, logger logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes 注册HTTP路由
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/presence/check", h.CheckPresence) // 用户是否在线
		api.GET("/presence/wait", h.CheckWait)      // 用户是否在等待对手
		api.GET("/presence/online", h.OnlineUsers)  // 在线用户列表（缓存）
		api.POST("/push/device", h.PushToDevice)    // 按设备令牌推送
		api.POST("/push/user", h.PushToUser)        // 按用户推送全部设备
		api.POST("/token", h.CreateToken)           // 签发自定义令牌
	}
}

// CheckPresence 查询用户是否在线
func (h *HTTPHandler) CheckPresence(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Query("user_id")
	locale := c.Query("locale")
	if userID == "" || locale == "" {
		httpx.WriteObject(c, nil, errors.New("user_id and locale are required"))
		return
	}

	online := h.service.CheckPresence(ctx, userID, locale)
	httpx.WriteObject(c, gin.H{"online": online}, nil)
}

// CheckWait 查询用户是否在等待指定对手
func (h *HTTPHandler) CheckWait(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Query("user_id")
	oppID := c.Query("opp_id")
	if userID == "" || oppID == "" {
		httpx.WriteObject(c, nil, errors.New("user_id and opp_id are required"))
		return
	}

	waiting := h.service.CheckWait(ctx, userID, oppID, c.Query("key"))
	httpx.WriteObject(c, gin.H{"waiting": waiting}, nil)
}

// OnlineUsers 查询在线用户列表
func (h *HTTPHandler) OnlineUsers(c *gin.Context) {
	ctx := c.Request.Context()
	locale := c.Query("locale")
	if locale == "" {
		httpx.WriteObject(c, nil, errors.New("locale is required"))
		return
	}

	users := h.service.OnlineUsers(ctx, locale)
	list := make([]string, 0, len(users))
	for userID := range users {
		list = append(list, userID)
	}
	httpx.WriteObject(c, gin.H{"users": list}, nil)
}

// PushToDevice 向单个设备推送通知
func (h *HTTPHandler) PushToDevice(c *gin.Context) {
	ctx := c.Request.Context()
	var req model.PushToDeviceRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error(ctx, "Invalid push to device request", logger.F("error", err.Error()))
		httpx.WriteObject(c, nil, err)
		return
	}

	sent := h.service.PushNotification(ctx, req.DeviceToken, model.PushMessage{
		Title: req.Title,
		Body:  req.Body,
		Image: req.Image,
	})
	httpx.WriteObject(c, gin.H{"sent": sent}, nil)
}

// PushToUser 向用户的全部设备推送通知
func (h *HTTPHandler) PushToUser(c *gin.Context) {
	ctx := c.Request.Context()
	var req model.PushToUserRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error(ctx, "Invalid push to user request", logger.F("error", err.Error()))
		httpx.WriteObject(c, nil, err)
		return
	}

	sent := h.service.PushToUser(ctx, req.UserID, model.PushMessage{
		Title: req.Title,
		Body:  req.Body,
		Image: req.Image,
	})
	httpx.WriteObject(c, gin.H{"sent": sent}, nil)
}

// CreateToken 签发自定义令牌，失败时没有可降级的默认值，直接报500
func (h *HTTPHandler) CreateToken(c *gin.Context) {
	ctx := c.Request.Context()
	var req model.CreateTokenRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error(ctx, "Invalid create token request", logger.F("error", err.Error()))
		httpx.WriteObject(c, nil, err)
		return
	}

	token, err := h.service.CreateCustomToken(req.UID, req.ValidMinutes)
	if err != nil {
		h.logger.Error(ctx, "Create custom token failed",
			logger.F("uid", req.UID),
			logger.F("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	httpx.WriteObject(c, gin.H{"token": token}, nil)
}
