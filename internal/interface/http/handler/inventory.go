package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/stockhub/internal/application/reservation"
	"github.com/xiebiao/stockhub/internal/domain/inventory"
	"github.com/xiebiao/stockhub/internal/interface/http/dto"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/response"
)

// InventoryHandler 门店库存HTTP处理器
type InventoryHandler struct {
	useCase *reservation.UseCase
}

// NewInventoryHandler 创建库存处理器
func NewInventoryHandler(useCase *reservation.UseCase) *InventoryHandler {
	return &InventoryHandler{useCase: useCase}
}

// Create 首次入库
// @Summary      首次入库
// @Description  为门店创建SKU库存记录，产生RESTOCK事件
// @Tags         门店库存
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateInventoryRequest true "库存信息"
// @Success      200 {object} response.Response{data=reservation.Result}
// @Failure      200 {object} response.Response "40900参数错误 / 40009记录已存在"
// @Router       /api/v1/inventory [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	res, err := h.useCase.Create(c.Request.Context(), reservation.CreateCommand{
		SKU:      req.SKU,
		StoreID:  req.StoreID,
		Name:     req.Name,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	writeResult(c, res, err)
}

// Get 查询单条库存
// @Summary      查询库存
// @Tags         门店库存
// @Produce      json
// @Param        storeId path string true "门店编号"
// @Param        sku     path string true "商品SKU"
// @Success      200 {object} response.Response{data=dto.InventoryResponse}
// @Failure      200 {object} response.Response "40401库存记录不存在"
// @Router       /api/v1/inventory/{storeId}/{sku} [get]
func (h *InventoryHandler) Get(c *gin.Context) {
	record, err := h.useCase.Get(c.Request.Context(), c.Param("sku"), c.Param("storeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewInventoryResponse(record))
}

// List 门店库存列表
// @Summary      门店库存列表
// @Tags         门店库存
// @Produce      json
// @Param        storeId     path  string true  "门店编号"
// @Param        page        query int    false "页码"
// @Param        page_size   query int    false "每页数量"
// @Param        active_only query bool   false "只看启用的记录"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.InventoryResponse}}
// @Router       /api/v1/inventory/{storeId} [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var req dto.ListInventoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	params := inventory.ListParams{Page: req.Page, PageSize: req.PageSize, ActiveOnly: req.ActiveOnly}
	params.Normalize()

	records, total, err := h.useCase.List(c.Request.Context(), c.Param("storeId"), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := make([]*dto.InventoryResponse, 0, len(records))
	for _, r := range records {
		list = append(list, dto.NewInventoryResponse(r))
	}
	response.SuccessWithPage(c, list, total, params.Page, params.PageSize)
}

// Reserve 预留库存
// @Summary      预留库存
// @Description  下单时锁定可售库存，失败时data中返回当前库存
// @Tags         门店库存
// @Accept       json
// @Produce      json
// @Param        storeId path string              true "门店编号"
// @Param        sku     path string              true "商品SKU"
// @Param        request body dto.QuantityRequest true "预留数量"
// @Success      200 {object} response.Response{data=reservation.Result}
// @Failure      200 {object} response.Response{data=reservation.Result} "40001可售库存不足"
// @Router       /api/v1/inventory/{storeId}/{sku}/reserve [post]
func (h *InventoryHandler) Reserve(c *gin.Context) {
	h.quantityOp(c, h.useCase.Reserve)
}

// Commit 确认预留
// @Summary      确认预留
// @Description  支付成功后扣减预留数量
// @Tags         门店库存
// @Accept       json
// @Produce      json
// @Param        storeId path string              true "门店编号"
// @Param        sku     path string              true "商品SKU"
// @Param        request body dto.QuantityRequest true "确认数量"
// @Success      200 {object} response.Response{data=reservation.Result}
// @Failure      200 {object} response.Response{data=reservation.Result} "40002预留库存不足"
// @Router       /api/v1/inventory/{storeId}/{sku}/commit [post]
func (h *InventoryHandler) Commit(c *gin.Context) {
	h.quantityOp(c, h.useCase.Commit)
}

// Cancel 取消预留
// @Summary      取消预留
// @Description  订单取消后把预留数量还回可售
// @Tags         门店库存
// @Accept       json
// @Produce      json
// @Param        storeId path string              true "门店编号"
// @Param        sku     path string              true "商品SKU"
// @Param        request body dto.QuantityRequest true "取消数量"
// @Success      200 {object} response.Response{data=reservation.Result}
// @Failure      200 {object} response.Response{data=reservation.Result} "40002预留库存不足"
// @Router       /api/v1/inventory/{storeId}/{sku}/cancel [post]
func (h *InventoryHandler) Cancel(c *gin.Context) {
	h.quantityOp(c, h.useCase.Cancel)
}

// Restock 补货
// @Summary      补货
// @Tags         门店库存
// @Accept       json
// @Produce      json
// @Param        storeId path string              true "门店编号"
// @Param        sku     path string              true "商品SKU"
// @Param        request body dto.QuantityRequest true "补货数量"
// @Success      200 {object} response.Response{data=reservation.Result}
// @Router       /api/v1/inventory/{storeId}/{sku}/restock [post]
func (h *InventoryHandler) Restock(c *gin.Context) {
	h.quantityOp(c, h.useCase.Restock)
}

// UpdateQuantity 盘点设置可售数量
// @Summary      盘点
// @Description  直接设置可售数量，不影响预留数量
// @Tags         门店库存
// @Accept       json
// @Produce      json
// @Param        storeId path string              true "门店编号"
// @Param        sku     path string              true "商品SKU"
// @Param        request body dto.QuantityRequest true "新数量"
// @Success      200 {object} response.Response{data=reservation.Result}
// @Router       /api/v1/inventory/{storeId}/{sku}/quantity [put]
func (h *InventoryHandler) UpdateQuantity(c *gin.Context) {
	h.quantityOp(c, h.useCase.UpdateQuantity)
}

// Deactivate 停用库存记录
// @Summary      停用
// @Tags         门店库存
// @Produce      json
// @Param        storeId path string true "门店编号"
// @Param        sku     path string true "商品SKU"
// @Success      200 {object} response.Response
// @Router       /api/v1/inventory/{storeId}/{sku} [delete]
func (h *InventoryHandler) Deactivate(c *gin.Context) {
	if err := h.useCase.Deactivate(c.Request.Context(), c.Param("sku"), c.Param("storeId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

type quantityFunc func(ctx context.Context, sku, storeID string, qty int) (*reservation.Result, error)

func (h *InventoryHandler) quantityOp(c *gin.Context, fn quantityFunc) {
	var req dto.QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error())
		return
	}

	res, err := fn(c.Request.Context(), c.Param("sku"), c.Param("storeId"), *req.Quantity)
	writeResult(c, res, err)
}

// writeResult 业务失败时仍返回当前库存
func writeResult(c *gin.Context, res *reservation.Result, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if !res.Success {
		response.ErrorWithData(c, res.ErrorCode, res.Message, res)
		return
	}
	response.Success(c, res)
}
