package service

import (
	"errors"

	"gorm.io/gorm"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// translateNotFound 将记录不存在转换为业务错误
func translateNotFound(err, sentinel error) error {
	if isNotFound(err) {
		return sentinel
	}
	return err
}
