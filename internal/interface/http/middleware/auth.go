package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/stockhub/pkg/errors"
	"github.com/xiebiao/stockhub/pkg/jwt"
	"github.com/xiebiao/stockhub/pkg/response"
)

const (
	ctxOperator = "operator"
	ctxClaims   = "claims"
)

// RevocationChecker Token黑名单查询
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware 运维接口认证
// 1. 从Header提取Bearer Token
// 2. 校验签名和有效期
// 3. 检查黑名单(jti)
// 4. 将运维人员信息注入Context
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	blacklist  RevocationChecker
	log        *zap.Logger
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager, blacklist RevocationChecker, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, blacklist: blacklist, log: log}
}

// RequireOperator 要求运维Token
//
//	admin := v1.Group("/admin")
//	admin.Use(authMiddleware.RequireOperator())
func (m *AuthMiddleware) RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ErrorWithCode(c, apperrors.ErrCodeUnauthorized, "请先登录")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.ErrorWithCode(c, apperrors.ErrCodeInvalidToken, "Token格式错误")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.Parse(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if claims.Role != jwt.RoleOperator {
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}

		// 黑名单按jti查询，先验签再查Redis
		revoked, err := m.blacklist.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			m.log.Error("查询Token黑名单失败", zap.Error(err))
			response.ErrorWithCode(c, apperrors.ErrCodeInternal, "验证Token失败")
			c.Abort()
			return
		}
		if revoked {
			response.ErrorWithCode(c, apperrors.ErrCodeTokenExpired, "Token已失效，请重新申请")
			c.Abort()
			return
		}

		c.Set(ctxOperator, claims.Operator)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// GetOperator 当前运维人员，未认证返回空串
func GetOperator(c *gin.Context) string {
	if v, ok := c.Get(ctxOperator); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetClaims 当前Token声明，只在RequireOperator之后可用
func GetClaims(c *gin.Context) *jwt.Claims {
	if v, ok := c.Get(ctxClaims); ok {
		if claims, ok := v.(*jwt.Claims); ok {
			return claims
		}
	}
	return nil
}
