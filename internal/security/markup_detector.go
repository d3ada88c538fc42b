package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MarkupDetector は利用者の自由記述にHTMLタグが含まれるかを判定する。
// 入力は加工せずそのまま保存し、判定結果はログの印付けにのみ使う。
type MarkupDetector interface {
	ContainsMarkup(s string) bool
}

// newlines はHTMLトークナイザと同じ改行の正規化を行う。
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

type markupDetector struct {
	policy *bluemonday.Policy
}

// NewMarkupDetector はbluemondayのStrictPolicyでMarkupDetectorを生成する。
// 生成したインスタンスは並行利用できる。
func NewMarkupDetector() MarkupDetector {
	return &markupDetector{policy: bluemonday.StrictPolicy()}
}

// ContainsMarkup はStrictPolicyがタグとして除去する部分があればtrueを返す。
// 両辺をデコードして比較するため、&lt;のような文字参照はテキストとして扱う。
func (d *markupDetector) ContainsMarkup(s string) bool {
	if s == "" {
		return false
	}
	s = newlines.Replace(s)
	return html.UnescapeString(d.policy.Sanitize(s)) != html.UnescapeString(s)
}
