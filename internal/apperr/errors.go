// Package apperr 定义语音成诗流程的错误分类
package apperr

import (
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Kind 错误类别
type Kind int

const (
	KindUnhandled          Kind = iota // 未分类的服务端错误
	KindClientInput                    // 客户端输入错误
	KindConversion                     // 音频转换失败
	KindToolNotFound                   // 转换工具不存在
	KindRecognitionTimeout             // 语音识别会话未完成
	KindGeneration                     // 大模型调用失败
	KindIllustration                   // 配图失败（只记录，不返回给客户端）
)

// String 返回类别名称
func (k Kind) String() string {
	switch k {
	case KindClientInput:
		return "client_input"
	case KindConversion:
		return "conversion"
	case KindToolNotFound:
		return "tool_not_found"
	case KindRecognitionTimeout:
		return "recognition_timeout"
	case KindGeneration:
		return "generation"
	case KindIllustration:
		return "illustration"
	default:
		return "unhandled"
	}
}

// Error 带类别和诊断信息的错误
type Error struct {
	Kind    Kind
	Message string // 返回给客户端的错误描述
	Details string // 外部工具或服务的诊断输出
	cause   error
}

// New 创建错误并记录调用栈
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: errors.New(message)}
}

// Wrap 包装底层错误并记录调用栈
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return New(kind, message)
	}
	return &Error{Kind: kind, Message: message, cause: errors.WithStack(err)}
}

// WithDetails 附加诊断信息
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

func (e *Error) Error() string {
	if e.cause == nil || e.cause.Error() == e.Message {
		return e.Message
	}
	return e.Message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Format 支持 %+v 输出完整调用栈
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "[%s] %s", e.Kind, e.Message)
			if e.Details != "" {
				fmt.Fprintf(s, "\ndetails: %s", e.Details)
			}
			if e.cause != nil {
				fmt.Fprintf(s, "\n%+v", e.cause)
			}
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// KindOf 返回错误链中第一个 *Error 的类别，没有则为 KindUnhandled
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnhandled
}

// As 从错误链中取出 *Error
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus 类别对应的HTTP状态码
func HTTPStatus(kind Kind) int {
	if kind == KindClientInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Unhandled 把任意错误转换为未分类错误，已分类的错误原样返回
func Unhandled(err error) *Error {
	if e, ok := As(err); ok {
		return e
	}
	return &Error{Kind: KindUnhandled, Message: err.Error(), cause: errors.WithStack(err)}
}
