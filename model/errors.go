package model

import "errors"

// 存储层统一返回的错误，屏蔽具体数据库驱动
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)
