package entity

import (
	"fmt"
	"reflect"
)

// ErrNotRegistered 实体未注册错误
type ErrNotRegistered struct {
	Type reflect.Type
}

func (e *ErrNotRegistered) Error() string {
	return fmt.Sprintf("entity type %s is not registered", e.Type)
}

// NewErrNotRegistered 创建实体未注册错误
func NewErrNotRegistered(t reflect.Type) *ErrNotRegistered {
	return &ErrNotRegistered{Type: t}
}
