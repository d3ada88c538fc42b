// Package logger はJSON構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// ServiceName は全ログ行に付与するserviceフィールドの値。
const ServiceName = "printpress"

// level は全ロガーで共有するログレベル。起動後にSetLevelで変更できる。
var level = new(slog.LevelVar)

// Setup はwへJSONを出力するslog.Loggerを返す。
// 各行にはserviceフィールドが付き、レベルはSetLevelの値に従う。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("service", ServiceName))
}

// SetupDefault はSetupのロガーをslogのデフォルトに設定する。wがnilならos.Stdout。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}

// SetLevel は出力するログの最低レベルを変更する。
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Level は現在のログレベルを返す。
func Level() slog.Level {
	return level.Level()
}
