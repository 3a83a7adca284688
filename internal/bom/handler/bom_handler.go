package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/service"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// List GET /api/bom/list
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.svc.List(c.Request.Context(), GetUserID(c))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, projects)
}

// Create POST /api/bom/project
func (h *ProjectHandler) Create(c *gin.Context) {
	var input dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	project, err := h.svc.Create(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, project)
}

// Update PUT /api/bom/project
func (h *ProjectHandler) Update(c *gin.Context) {
	var input dto.UpdateProjectRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	project, err := h.svc.Update(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, project)
}

// Delete DELETE /api/bom/project
func (h *ProjectHandler) Delete(c *gin.Context) {
	var input dto.DeleteProjectRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), input.ProjectID); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, dto.DeleteResult{Deleted: 1})
}

// BomHandler BOM处理器
type BomHandler struct {
	svc *service.BomService
}

func NewBomHandler(svc *service.BomService) *BomHandler {
	return &BomHandler{svc: svc}
}

// Get GET /api/bom?name=
func (h *BomHandler) Get(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		BadRequest(c, "name is required")
		return
	}
	bom, err := h.svc.GetBom(c.Request.Context(), GetUserID(c), name)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, bom)
}

// AddPart POST /api/bom/part
func (h *BomHandler) AddPart(c *gin.Context) {
	var input dto.AddBomPartRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, err := h.svc.AddPart(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, item)
}

// UpdatePart PUT /api/bom/part
func (h *BomHandler) UpdatePart(c *gin.Context) {
	var input dto.UpdateBomPartRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	item, err := h.svc.UpdatePart(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, item)
}

// DeleteParts DELETE /api/bom/part
func (h *BomHandler) DeleteParts(c *gin.Context) {
	var input dto.DeleteBomPartRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	result, err := h.svc.DeleteParts(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// MoveParts PUT /api/bom/move
func (h *BomHandler) MoveParts(c *gin.Context) {
	var input dto.MoveBomPartRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	result, err := h.svc.MoveParts(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// AddPcb POST /api/bom/pcb
func (h *BomHandler) AddPcb(c *gin.Context) {
	var input dto.AddPcbRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	pcb, err := h.svc.AddPcb(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, pcb)
}

// UpdatePcb PUT /api/bom/pcb
func (h *BomHandler) UpdatePcb(c *gin.Context) {
	var input dto.UpdatePcbRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	pcb, err := h.svc.UpdatePcb(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, pcb)
}

// DeletePcb DELETE /api/bom/pcb
func (h *BomHandler) DeletePcb(c *gin.Context) {
	var input dto.DeletePcbRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	if err := h.svc.DeletePcb(c.Request.Context(), GetUserID(c), &input); err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, dto.DeleteResult{Deleted: 1})
}

// Produce POST /api/bom/produce
func (h *BomHandler) Produce(c *gin.Context) {
	var input dto.ProduceBomRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	result, err := h.svc.Produce(c.Request.Context(), GetUserID(c), &input)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, result)
}

// History GET /api/bom/history?projectId=
func (h *BomHandler) History(c *gin.Context) {
	projectID, ok := queryInt64(c, "projectId")
	if !ok {
		BadRequest(c, "projectId is required")
		return
	}
	list, err := h.svc.ListProduceHistory(c.Request.Context(), GetUserID(c), projectID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Success(c, list)
}

// Download POST /api/bom/download
func (h *BomHandler) Download(c *gin.Context) {
	var input dto.DownloadBomRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	file, err := h.svc.Export(c.Request.Context(), GetUserID(c), input.ProjectID, input.Format)
	if err != nil {
		ServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+file.Filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Data(200, file.ContentType, file.Data)
}
