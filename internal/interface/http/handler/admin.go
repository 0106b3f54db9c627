package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/stockhub/internal/application/aggregation"
	"github.com/xiebiao/stockhub/internal/interface/http/dto"
	"github.com/xiebiao/stockhub/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/jwt"
	"github.com/xiebiao/stockhub/pkg/response"
)

// LedgerHandler 中心台账运维
type LedgerHandler struct {
	admin *aggregation.AdminUseCase
}

// NewLedgerHandler 创建台账处理器
func NewLedgerHandler(admin *aggregation.AdminUseCase) *LedgerHandler {
	return &LedgerHandler{admin: admin}
}

// List 台账查询
// @Summary      事件台账
// @Tags         运维
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string false "处理状态" Enums(PENDING,PROCESSED,FAILED,IGNORED)
// @Param        sku       query string false "商品SKU"
// @Param        storeId   query string false "门店编号"
// @Param        from      query string false "接收时间起(RFC3339)"
// @Param        to        query string false "接收时间止(RFC3339)"
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.LedgerEventResponse}}
// @Router       /api/v1/admin/events [get]
func (h *LedgerHandler) List(c *gin.Context) {
	var req dto.ListEventsRequest
	if !bindQuery(c, &req) {
		return
	}
	filter := req.ToFilter()

	items, total, err := h.admin.ListEvents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.NewLedgerEventList(items), total, filter.Page.Page, filter.Page.PageSize)
}

// Purge 清理台账
// @Summary      清理事件台账
// @Description  删除N天前接收的台账记录
// @Tags         运维
// @Produce      json
// @Security     BearerAuth
// @Param        olderThanDays query int true "保留天数"
// @Success      200 {object} response.Response{data=dto.PurgeResponse}
// @Router       /api/v1/admin/events [delete]
func (h *LedgerHandler) Purge(c *gin.Context) {
	var req dto.PurgeRequest
	if !bindQuery(c, &req) {
		return
	}

	n, err := h.admin.PurgeEvents(c.Request.Context(), req.OlderThanDays)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.PurgeResponse{Deleted: n})
}

// TokenRevoker Token吊销
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// AuthHandler 运维Token吊销
type AuthHandler struct {
	jwtManager *jwt.Manager
	revoker    TokenRevoker
	log        *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(jwtManager *jwt.Manager, revoker TokenRevoker, log *zap.Logger) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager, revoker: revoker, log: log}
}

// Logout 吊销当前Token
// @Summary      吊销Token
// @Description  当前Token加入黑名单，直到原有效期结束
// @Tags         运维
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response{data=dto.LogoutResponse}
// @Router       /api/v1/admin/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.revoker.Revoke(c.Request.Context(), claims.ID, h.jwtManager.Remaining(claims)); err != nil {
		response.Error(c, err)
		return
	}

	h.log.Info("运维Token已吊销", zap.String("operator", claims.Operator), zap.String("token_id", claims.ID))
	response.Success(c, &dto.LogoutResponse{TokenID: claims.ID})
}
