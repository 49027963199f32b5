package api

import (
	"strings"

	"github.com/truckdock/internal/http/handlers/shared"
	"github.com/truckdock/internal/http/response"
	"github.com/truckdock/internal/i18n"
	"github.com/truckdock/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateStatusRequest 状态更新请求
type UpdateStatusRequest struct {
	StatusType string `json:"status_type" form:"status_type" binding:"required"`
	Status     string `json:"status" form:"status" binding:"required"`
}

// truckQueryFromRequest 读取列表/导出/统计共用的查询参数
func truckQueryFromRequest(c *gin.Context) service.TruckQuery {
	page, pageSize := shared.QueryPagination(c)
	return service.TruckQuery{
		Page:              page,
		PageSize:          pageSize,
		Terminal:          strings.TrimSpace(c.Query("terminal")),
		StatusPreparation: strings.TrimSpace(c.Query("status_preparation")),
		StatusLoading:     strings.TrimSpace(c.Query("status_loading")),
		DateFrom:          strings.TrimSpace(c.Query("date_from")),
		DateTo:            strings.TrimSpace(c.Query("date_to")),
		Search:            strings.TrimSpace(c.Query("search")),
	}
}

// ListTrucks 车辆记录列表
func (h *Handler) ListTrucks(c *gin.Context) {
	query := truckQueryFromRequest(c)
	trucks, total, err := h.TruckService.List(query)
	if err != nil {
		respondTruckError(c, err, "error.internal_error")
		return
	}
	response.SuccessWithPage(c, trucks, response.NewPagination(query.Page, query.PageSize, total))
}

// GetTruck 车辆记录详情
func (h *Handler) GetTruck(c *gin.Context) {
	truck, err := h.TruckService.Get(c.Param("id"))
	if err != nil {
		respondTruckError(c, err, "error.internal_error")
		return
	}
	response.Success(c, truck)
}

// CreateTruck 新建车辆记录
func (h *Handler) CreateTruck(c *gin.Context) {
	var input service.CreateTruckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	truck, err := h.TruckService.Create(input)
	if err != nil {
		respondTruckError(c, err, "error.internal_error")
		return
	}
	response.Success(c, truck)
}

// UpdateTruck 部分更新车辆记录
func (h *Handler) UpdateTruck(c *gin.Context) {
	var input service.UpdateTruckInput
	if err := c.ShouldBindJSON(&input); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	truck, err := h.TruckService.Update(c.Param("id"), input)
	if err != nil {
		respondTruckError(c, err, "error.internal_error")
		return
	}
	response.Success(c, truck)
}

// UpdateTruckStatus 更新准备或装车状态
func (h *Handler) UpdateTruckStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	truck, err := h.TruckService.UpdateStatus(c.Param("id"), req.StatusType, req.Status)
	if err != nil {
		respondTruckError(c, err, "error.internal_error")
		return
	}
	response.Success(c, truck)
}

// DeleteTruck 删除车辆记录（管理员）
func (h *Handler) DeleteTruck(c *gin.Context) {
	id := c.Param("id")
	if err := h.TruckService.Delete(id); err != nil {
		respondTruckError(c, err, "error.internal_error")
		return
	}
	msg := i18n.T(i18n.ResolveLocale(c), "message.truck_deleted")
	response.SuccessWithMsg(c, msg, gin.H{"id": id})
}

// GetStats 看板统计
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.TruckService.Stats(truckQueryFromRequest(c))
	if err != nil {
		respondTruckError(c, err, "error.internal_error")
		return
	}
	response.Success(c, stats)
}

// GetDuplicateStats 重复数据统计
func (h *Handler) GetDuplicateStats(c *gin.Context) {
	stats, err := h.TruckService.DuplicateStats()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	msg := i18n.T(i18n.ResolveLocale(c), "message.duplicate_stats")
	response.SuccessWithMsg(c, msg, stats)
}

// CheckDuplicates 检查业务键命中情况（导入时更新还是新建）
func (h *Handler) CheckDuplicates(c *gin.Context) {
	var input service.DuplicateCheckInput
	if err := c.ShouldBindQuery(&input); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.TruckService.CheckDuplicate(input)
	if err != nil {
		respondTruckError(c, err, "error.internal_error")
		return
	}
	key := "message.check_create"
	if result.Exists {
		key = "message.check_update"
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), key), result)
}
