package inventory

import (
	apperrors "github.com/xiebiao/stockhub/pkg/errors"
)

// 库存领域错误定义
var (
	// ErrRecordNotFound 库存记录不存在
	ErrRecordNotFound = apperrors.New(apperrors.ErrCodeInventoryNotFound, "库存记录不存在")

	// ErrRecordExists 库存记录已存在
	ErrRecordExists = apperrors.New(apperrors.ErrCodeDuplicateEntry, "该门店已存在此SKU的库存记录")

	// ErrInvalidSKU SKU为空
	ErrInvalidSKU = apperrors.New(apperrors.ErrCodeInvalidParams, "SKU不能为空")

	// ErrInvalidStore 门店编号为空
	ErrInvalidStore = apperrors.New(apperrors.ErrCodeInvalidParams, "门店编号不能为空")

	// ErrInvalidPrice 价格为负
	ErrInvalidPrice = apperrors.New(apperrors.ErrCodeInvalidParams, "价格不能为负数")

	// ErrInvalidQuantity 数量必须为正
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")

	// ErrNegativeQuantity 库存数量不能为负
	ErrNegativeQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "库存数量不能为负数")

	// ErrInsufficientStock 可售库存不足
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "可售库存不足")

	// ErrInsufficientReserved 预留库存不足
	ErrInsufficientReserved = apperrors.New(apperrors.ErrCodeInsufficientReserved, "预留库存不足")

	// ErrRecordInactive 记录已停用
	ErrRecordInactive = apperrors.New(apperrors.ErrCodeRecordInactive, "库存记录已停用")

	// ErrVersionConflict 乐观锁版本不匹配（内部错误，会被自动重试）
	ErrVersionConflict = apperrors.New(apperrors.ErrCodeConcurrencyConflict, "库存版本冲突")

	// ErrConcurrencyConflictUnresolved 乐观锁重试耗尽
	ErrConcurrencyConflictUnresolved = apperrors.New(apperrors.ErrCodeConcurrencyConflict, "系统繁忙，请稍后重试")
)
