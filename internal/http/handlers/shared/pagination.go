package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// QueryPagination 读取 page / page_size；兼容旧客户端的 skip / limit，skip 向下取整到页边界。
func QueryPagination(c *gin.Context) (int, int) {
	page := queryInt(c, "page")
	pageSize := queryInt(c, "page_size")
	if pageSize == 0 {
		pageSize = queryInt(c, "limit")
	}
	_, pageSize = NormalizePagination(1, pageSize)
	if page == 0 {
		if skip := queryInt(c, "skip"); skip > 0 {
			page = skip/pageSize + 1
		}
	}
	return NormalizePagination(page, pageSize)
}

func queryInt(c *gin.Context, key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return value
}
