//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 识别跨设备 rename；osfs 返回的 *os.LinkError 实现了 Unwrap，errors.Is 可直达 errno。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
