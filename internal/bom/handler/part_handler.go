package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/service"
)

// PartHandler 库存零件处理器
type PartHandler struct {
	svc *service.PartService
}

func NewPartHandler(svc *service.PartService) *PartHandler {
	return &PartHandler{svc: svc}
}

// Search GET /api/part/search?keywords=&limit=
func (h *PartHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	parts, err := h.svc.Search(c.Request.Context(), GetUserID(c), c.Query("keywords"), limit)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, parts)
}

// Create POST /api/part
func (h *PartHandler) Create(c *gin.Context) {
	var input dto.CreatePartRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	part, err := h.svc.Create(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, part)
}

// Get GET /api/part/:id
func (h *PartHandler) Get(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		BadRequest(c, "invalid part id")
		return
	}
	part, err := h.svc.Get(c.Request.Context(), GetUserID(c), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, part)
}

// Update PUT /api/part/:id
func (h *PartHandler) Update(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		BadRequest(c, "invalid part id")
		return
	}
	var input dto.UpdatePartRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	part, err := h.svc.Update(c.Request.Context(), GetUserID(c), id, &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, part)
}
