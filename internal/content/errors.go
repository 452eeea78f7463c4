package content

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示内容文件不存在。
var ErrNotFound = errors.New("content not found")

// DecodeError 表示文件存在但无法解析。
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
