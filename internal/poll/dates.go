package poll

import (
	"strings"
	"time"

	"github.com/hitoshi/pollman/internal/model"
)

// closeDateLayouts は締切日時として受け付けるレイアウト。
// RFC3339が正とし、タイムゾーンなしの値はUTCとして解釈する。
// 空白区切りの形式は旧管理APIとの互換のために残している。
var closeDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseCloseDate はISO-8601形式の締切日時をパースする。
// 末尾のリテラル"Z"はUTCオフセット+00:00として受け付ける。
// すべての締切日時フィールドはこの単一のパーサを通る。
// 不正な書式の場合はINVALID_CLOSE_DATEエラーを返す。
func ParseCloseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range closeDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, model.NewInvalidCloseDateError()
}
