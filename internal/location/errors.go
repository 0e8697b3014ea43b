package location

import "fmt"

// 错误码
const (
	CodeInvalidScan = "invalid_scan"
	CodeStaleSeq    = "stale_seq"
)

// LocationError 扫描数据在追踪器入口被拒绝
type LocationError struct {
	Code   string
	Reason string
}

func (e *LocationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("location error: %s", e.Code)
	}
	return fmt.Sprintf("location error: %s: %s", e.Code, e.Reason)
}

// Is 按错误码比较，便于 errors.Is(err, ErrInvalidScan)
func (e *LocationError) Is(target error) bool {
	t, ok := target.(*LocationError)
	return ok && t.Code == e.Code
}

// ErrInvalidScan 缺少节点 ID 与坐标的扫描
var ErrInvalidScan = &LocationError{Code: CodeInvalidScan}
