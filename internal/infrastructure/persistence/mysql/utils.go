package mysql

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// errNumDuplicateEntry MySQL 1062: Duplicate entry 'xxx' for key 'yyy'
const errNumDuplicateEntry = 1062

// isDuplicateError 判断是否为唯一索引冲突
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errNumDuplicateEntry
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// pageOffset 分页偏移量，page从1开始
func pageOffset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
