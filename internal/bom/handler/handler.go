package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/replaysMike/Binner-sub003/internal/bom/service"
	"github.com/replaysMike/Binner-sub003/internal/middleware"
)

// Handlers 处理器集合
type Handlers struct {
	Project *ProjectHandler
	Bom     *BomHandler
	Part    *PartHandler
	Events  *EventsHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Project: NewProjectHandler(svc.Project),
		Bom:     NewBomHandler(svc.Bom),
		Part:    NewPartHandler(svc.Part),
		Events:  NewEventsHandler(svc.Events),
	}
}

// RegisterRoutes mounts the BOM and inventory routes on an authorized group.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	bom := api.Group("/bom")
	{
		bom.GET("", h.Bom.Get)
		bom.GET("/list", h.Project.List)
		bom.POST("/project", h.Project.Create)
		bom.PUT("/project", h.Project.Update)
		bom.DELETE("/project", h.Project.Delete)
		bom.POST("/part", h.Bom.AddPart)
		bom.PUT("/part", h.Bom.UpdatePart)
		bom.DELETE("/part", h.Bom.DeleteParts)
		bom.PUT("/move", h.Bom.MoveParts)
		bom.POST("/pcb", h.Bom.AddPcb)
		bom.PUT("/pcb", h.Bom.UpdatePcb)
		bom.DELETE("/pcb", h.Bom.DeletePcb)
		bom.POST("/produce", h.Bom.Produce)
		bom.GET("/history", h.Bom.History)
		bom.POST("/download", h.Bom.Download)
		bom.GET("/events", h.Events.Stream)
	}

	part := api.Group("/part")
	{
		part.GET("/search", h.Part.Search)
		part.POST("", h.Part.Create)
		part.GET("/:id", h.Part.Get)
		part.PUT("/:id", h.Part.Update)
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceError maps a service error onto the matching response.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		Conflict(c, err.Error())
	default:
		_ = c.Error(err)
		InternalError(c, "internal error")
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(middleware.KeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func queryInt64(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func paramInt64(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
