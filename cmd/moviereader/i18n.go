// Package main provides localization for the moviereader CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Read frames of movie files through a cached decoding pipeline.": "キャッシュ付きデコードパイプラインで動画のフレームを読み込みます。",

		// Version command
		"moviereader version %s": "moviereader バージョン %s",

		// Runtime messages
		"Frame %d resolved to %d":               "フレーム %d は %d として読み込まれました",
		"%d of %d frames could not be read: %v": "%d / %d フレームを読み込めませんでした: %v",

		// Report content
		"Media Report":     "メディアレポート",
		"Resource":         "リソース",
		"Item":             "項目",
		"Value":            "値",
		"Path":             "パス",
		"Local Path":       "ローカルパス",
		"Format":           "形式",
		"Duration":         "再生時間",
		"Size":             "サイズ",
		"Modified":         "更新日時",
		"Refresh":          "リフレッシュ回数",
		"Video Streams":    "映像ストリーム",
		"No video streams": "映像ストリームがありません",
		"Stream":           "ストリーム",
		"Codec":            "コーデック",
		"Pixel Format":     "ピクセル形式",
		"Pixel Aspect":     "ピクセルアスペクト",
		"Frame Rate":       "フレームレート",
		"Frames":           "フレーム",
		"Color Space":      "色空間",
		"default":          "既定",
		"unresolved":       "未解決",
		"Color Settings":   "色設定",
		"Working Space":    "作業色空間",
		"Display Space":    "表示色空間",
		"Log Space":        "ログ色空間",
		"Generated at":     "生成日時",
	})
}
