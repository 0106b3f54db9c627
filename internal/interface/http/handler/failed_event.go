package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockhub/internal/application/publishing"
	"github.com/xiebiao/stockhub/internal/domain/failedevent"
	"github.com/xiebiao/stockhub/internal/interface/http/dto"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/response"
)

// FailedEventHandler 失败事件运维
type FailedEventHandler struct {
	admin *publishing.AdminUseCase
}

// NewFailedEventHandler 创建失败事件处理器
func NewFailedEventHandler(admin *publishing.AdminUseCase) *FailedEventHandler {
	return &FailedEventHandler{admin: admin}
}

// List 失败事件列表
// @Summary      失败事件列表
// @Tags         运维
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string false "状态" Enums(PENDING,PROCESSING,SUCCEEDED,FAILED,CANCELLED)
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Success      200 {object} response.Response{data=dto.FailedEventListResponse}
// @Failure      200 {object} response.Response "40100未登录"
// @Router       /api/v1/admin/failed-events [get]
func (h *FailedEventHandler) List(c *gin.Context) {
	var req dto.ListFailedEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	result, err := h.admin.List(c.Request.Context(), failedevent.Status(req.Status), req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]*dto.FailedEventResponse, 0, len(result.Items))
	for _, fe := range result.Items {
		list = append(list, dto.NewFailedEventResponse(fe))
	}
	counts := make(map[string]int64, len(result.Counts))
	for status, n := range result.Counts {
		counts[string(status)] = n
	}

	page := response.NewPageData(list, result.Total, result.Page, result.PageSize)
	response.Success(c, &dto.FailedEventListResponse{
		List:       list,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Counts:     counts,
	})
}

// Retry 立即重试
// @Summary      手动重试失败事件
// @Description  FAILED/CANCELLED会先重新入队，然后立即投递一次
// @Tags         运维
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "失败事件ID"
// @Success      200 {object} response.Response{data=dto.FailedEventResponse}
// @Failure      200 {object} response.Response "40402失败事件不存在"
// @Router       /api/v1/admin/failed-events/{id}/retry [post]
func (h *FailedEventHandler) Retry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fe, err := h.admin.Retry(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewFailedEventResponse(fe))
}

// Cancel 取消补偿
// @Summary      取消失败事件
// @Tags         运维
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "失败事件ID"
// @Success      200 {object} response.Response{data=dto.FailedEventResponse}
// @Failure      200 {object} response.Response "40402失败事件不存在"
// @Router       /api/v1/admin/failed-events/{id}/cancel [post]
func (h *FailedEventHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fe, err := h.admin.Cancel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewFailedEventResponse(fe))
}

// Purge 清理已结束的事件
// @Summary      清理失败事件
// @Description  删除N天前已成功或已取消的事件
// @Tags         运维
// @Produce      json
// @Security     BearerAuth
// @Param        olderThanDays query int true "保留天数"
// @Success      200 {object} response.Response{data=dto.PurgeResponse}
// @Router       /api/v1/admin/failed-events [delete]
func (h *FailedEventHandler) Purge(c *gin.Context) {
	var req dto.PurgeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	n, err := h.admin.Purge(c.Request.Context(), req.OlderThanDays)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.PurgeResponse{Deleted: n})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "ID格式错误")
		return 0, false
	}
	return uint(id), true
}
