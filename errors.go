package speech

import (
	"errors"
	"fmt"
)

// ErrorKind 错误类别
type ErrorKind int

const (
	// KindAssetUnavailable 资源文件缺失且下载失败
	KindAssetUnavailable ErrorKind = iota + 1
	// KindAssetCorrupt 模型或音色文件无法解析
	KindAssetCorrupt
	// KindUnknownVoice 未知音色
	KindUnknownVoice
	// KindInvalidArgument 参数不合法 (空文本、非正语速等)
	KindInvalidArgument
	// KindPhonemizer G2P 后端失败
	KindPhonemizer
	// KindInference 张量构建或推理失败
	KindInference
	// KindIO 文件写入失败
	KindIO
)

var kindNames = map[ErrorKind]string{
	KindAssetUnavailable: "AssetUnavailable",
	KindAssetCorrupt:     "AssetCorrupt",
	KindUnknownVoice:     "UnknownVoice",
	KindInvalidArgument:  "InvalidArgument",
	KindPhonemizer:       "PhonemizerError",
	KindInference:        "InferenceError",
	KindIO:               "IoError",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error 统一错误类型
//
// Value 保存出错的上下文 (音色名、文件路径、URL 等)
type Error struct {
	Kind  ErrorKind
	Value string
	Err   error
}

// 哨兵错误，可配合 errors.Is 按类别判断
var (
	ErrAssetUnavailable = &Error{Kind: KindAssetUnavailable}
	ErrAssetCorrupt     = &Error{Kind: KindAssetCorrupt}
	ErrUnknownVoice     = &Error{Kind: KindUnknownVoice}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrPhonemizer       = &Error{Kind: KindPhonemizer}
	ErrInference        = &Error{Kind: KindInference}
	ErrIO               = &Error{Kind: KindIO}
)

// NewError 创建带上下文的错误
func NewError(kind ErrorKind, value string, err error) *Error {
	return &Error{Kind: kind, Value: value, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Value != "" {
		msg += ": " + e.Value
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同类别的哨兵错误视为匹配
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Value == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// KindOf 提取错误类别，非 *Error 返回 0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
