// Package errs 定义安装流程中各阶段的错误类别。
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind 标识错误类别。
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUpstream
	KindTransport
	KindDownload
	KindSizeMismatch
	KindChecksumMismatch
	KindUnsupportedFormat
	KindExtraction
	KindNotInstalled
	KindPlatformUnsupported
	KindBusy
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindNotFound:            "not found",
	KindUpstream:            "upstream error",
	KindTransport:           "transport error",
	KindDownload:            "download error",
	KindSizeMismatch:        "size mismatch",
	KindChecksumMismatch:    "checksum mismatch",
	KindUnsupportedFormat:   "unsupported format",
	KindExtraction:          "extraction failure",
	KindNotInstalled:        "not installed",
	KindPlatformUnsupported: "platform unsupported",
	KindBusy:                "busy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// 供 errors.Is 使用的哨兵值，只按类别匹配。
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUpstream            = &Error{Kind: KindUpstream}
	ErrTransport           = &Error{Kind: KindTransport}
	ErrDownload            = &Error{Kind: KindDownload}
	ErrSizeMismatch        = &Error{Kind: KindSizeMismatch}
	ErrChecksumMismatch    = &Error{Kind: KindChecksumMismatch}
	ErrUnsupportedFormat   = &Error{Kind: KindUnsupportedFormat}
	ErrExtraction          = &Error{Kind: KindExtraction}
	ErrNotInstalled        = &Error{Kind: KindNotInstalled}
	ErrPlatformUnsupported = &Error{Kind: KindPlatformUnsupported}
	ErrBusy                = &Error{Kind: KindBusy}
)

// Error 携带足够的上下文（路径、URL、期望值与实际值）用于直接诊断。
type Error struct {
	Kind     Kind
	Op       string
	Path     string
	URL      string
	Expected string
	Actual   string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.URL != "" {
		fmt.Fprintf(&b, " url=%s", e.URL)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " path=%s", e.Path)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, " (expected %s, got %s)", e.Expected, e.Actual)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrXxx) 只比较类别。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New 构造指定类别的错误。
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 返回错误链中第一个 *Error 的类别。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
