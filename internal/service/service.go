// Package service 业务逻辑层，依赖 repository.Store 与少量外部接口
package service

import (
	stderrors "errors"
	"fmt"
	"time"

	"TaskQuest/internal/repository"
	"TaskQuest/pkg/errors"
)

// notFoundAs 把仓储层的 ErrNotFound 换成业务错误，其余错误原样包装
func notFoundAs(err error, def errors.Definition, op string) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return def
	}
	return fmt.Errorf("%s: %w", op, err)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errors.InvalidRequest, fmt.Sprintf(format, args...))
}

// floorHours 向下取整的小时数，负数同样向下取整
func floorHours(d time.Duration) int64 {
	h := int64(d / time.Hour)
	if d < 0 && d%time.Hour != 0 {
		h--
	}
	return h
}
