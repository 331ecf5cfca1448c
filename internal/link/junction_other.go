//go:build !windows

package link

import "github.com/liangyou/goup/internal/errs"

// JunctionLinker 仅在 Windows 上可用。
type JunctionLinker struct{}

func (JunctionLinker) Name() string { return "junction" }

func (JunctionLinker) Link(_, at string) error {
	return &errs.Error{Kind: errs.KindPlatformUnsupported, Op: "link: junction", Path: at}
}

func (JunctionLinker) Resolve(at string) (string, error) {
	return "", &errs.Error{Kind: errs.KindPlatformUnsupported, Op: "link: junction", Path: at}
}
