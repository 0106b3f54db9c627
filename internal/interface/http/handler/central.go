package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockhub/internal/application/aggregation"
	"github.com/xiebiao/stockhub/internal/domain/event"
	"github.com/xiebiao/stockhub/internal/interface/http/dto"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/response"
)

// CentralHandler 中心节点查询与HTTP入库
type CentralHandler struct {
	query  *aggregation.QueryUseCase
	ingest *aggregation.IngestUseCase
}

// NewCentralHandler 创建中心节点处理器
func NewCentralHandler(query *aggregation.QueryUseCase, ingest *aggregation.IngestUseCase) *CentralHandler {
	return &CentralHandler{query: query, ingest: ingest}
}

// GetBySKU 单个SKU汇总
// @Summary      SKU汇总
// @Description  跨门店汇总及各门店明细
// @Tags         中心库存
// @Produce      json
// @Param        sku path string true "商品SKU"
// @Success      200 {object} response.Response{data=dto.SKUViewResponse}
// @Failure      200 {object} response.Response "40401中心库存不存在"
// @Router       /api/v1/central/inventory/{sku} [get]
func (h *CentralHandler) GetBySKU(c *gin.Context) {
	view, err := h.query.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.SKUViewResponse{
		Global: dto.NewGlobalInventoryResponse(view.Global),
		Stores: dto.NewStoreInventoryList(view.Stores),
	})
}

// ListByStore 门店下所有SKU
// @Summary      门店库存投影
// @Tags         中心库存
// @Produce      json
// @Param        storeId   path  string true  "门店编号"
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.StoreInventoryResponse}}
// @Router       /api/v1/central/stores/{storeId}/inventory [get]
func (h *CentralHandler) ListByStore(c *gin.Context) {
	var req dto.PageRequest
	if !bindQuery(c, &req) {
		return
	}
	page := req.ToPage()

	items, total, err := h.query.ListByStore(c.Request.Context(), c.Param("storeId"), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewStoreInventoryList(items), total, page.Page, page.PageSize)
}

// ListAvailable 有可售库存的SKU
// @Summary      有货SKU
// @Tags         中心库存
// @Produce      json
// @Param        available query bool false "固定为true"
// @Param        page      query int  false "页码"
// @Param        page_size query int  false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.GlobalInventoryResponse}}
// @Router       /api/v1/central/inventory [get]
func (h *CentralHandler) ListAvailable(c *gin.Context) {
	var req dto.PageRequest
	if !bindQuery(c, &req) {
		return
	}
	page := req.ToPage()

	items, total, err := h.query.ListWithAvailableStock(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewGlobalInventoryList(items), total, page.Page, page.PageSize)
}

// ListLowStock 低库存预警
// @Summary      低库存SKU
// @Tags         中心库存
// @Produce      json
// @Param        threshold query int true  "可售合计阈值(含)"
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.GlobalInventoryResponse}}
// @Router       /api/v1/central/inventory/low-stock [get]
func (h *CentralHandler) ListLowStock(c *gin.Context) {
	var req dto.LowStockRequest
	if !bindQuery(c, &req) {
		return
	}
	page := req.ToPage()

	items, total, err := h.query.ListLowStock(c.Request.Context(), *req.Threshold, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewGlobalInventoryList(items), total, page.Page, page.PageSize)
}

// ListUnsynchronized 未同步的门店投影
// @Summary      待对账投影
// @Description  事件应用失败后标记为未同步，等待重投或人工对账
// @Tags         中心库存
// @Produce      json
// @Param        page      query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.StoreInventoryResponse}}
// @Router       /api/v1/central/unsynchronized [get]
func (h *CentralHandler) ListUnsynchronized(c *gin.Context) {
	var req dto.PageRequest
	if !bindQuery(c, &req) {
		return
	}
	page := req.ToPage()

	items, total, err := h.query.ListUnsynchronized(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewStoreInventoryList(items), total, page.Page, page.PageSize)
}

// StoreStats 门店统计
// @Summary      门店统计
// @Tags         中心库存
// @Produce      json
// @Success      200 {object} response.Response{data=[]central.StoreStats}
// @Router       /api/v1/central/stores/stats [get]
func (h *CentralHandler) StoreStats(c *gin.Context) {
	stats, err := h.query.StoreStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}

// Ingest HTTP入库
// @Summary      HTTP入库
// @Description  消息体与消息队列中的事件相同，按eventId幂等
// @Tags         中心库存
// @Accept       json
// @Produce      json
// @Param        request body event.DomainEvent true "库存事件"
// @Success      200 {object} response.Response{data=dto.IngestResponse}
// @Failure      200 {object} response.Response{data=dto.IngestResponse} "40900事件内容不合法"
// @Router       /api/v1/central/events [post]
func (h *CentralHandler) Ingest(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "读取请求体失败")
		return
	}
	evt, err := event.Unmarshal(payload)
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数格式错误: "+err.Error())
		return
	}

	outcome, err := h.ingest.Handle(c.Request.Context(), evt, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	res := &dto.IngestResponse{EventID: evt.EventID, Outcome: string(outcome)}
	if outcome == aggregation.OutcomeRejected {
		response.ErrorWithData(c, apperrors.ErrCodeInvalidParams, "事件内容不合法", res)
		return
	}
	response.Success(c, res)
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return false
	}
	return true
}
