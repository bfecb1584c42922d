package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Command level messages (info)
		"Probing %s":                    "%s を解析中",
		"Reading frame %d of %s":        "%s のフレーム %d を読み込み中",
		"Frame written to %s":           "フレームを %s に書き出しました",
		"Contact sheet written to %s":   "コンタクトシートを %s に書き出しました",
		"Report written to %s":          "レポートを %s に書き出しました",
		"Listening on %s":               "%s で待ち受け中",
		"Server stopped":                "サーバーを停止しました",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Probe stage
		"Probed %s: %s, %d video streams":   "%s を解析: %s, 映像ストリーム %d 本",
		"Stream %d: %s %dx%d, %d frames":    "ストリーム %d: %s %dx%d, %d フレーム",
		"Guessing frame count of stream %d": "ストリーム %d のフレーム数を推定します",

		// Reader pipeline
		"%s frame %d: %s":                         "%s フレーム %d: %s",
		"Resource %s changed, re-probing":         "%s が変更されたため再解析します",
		"Refresh count of %s changed to %d":       "%s のリフレッシュ回数が %d に変わりました",
		"Opening decoder for %s":                  "%s のデコーダを開いています",
		"Retrying decode of frame %d (%d/%d): %s": "フレーム %d のデコードを再試行中 (%d/%d): %s",
		"Frame %d missing from %s, applying %s":   "%s にフレーム %d がないため %s を適用します",
		"Closing decoder for %s":                  "%s のデコーダを閉じています",

		// Frame cache
		"Evicted frame %d of %s":                         "%s のフレーム %d を破棄しました",
		"Frame %d of %s exceeds cache budget (%d bytes)": "%s のフレーム %d はキャッシュ容量を超えています (%d バイト)",

		// ffmpeg
		"Using ffprobe at %s":                       "ffprobe を使用: %s",
		"ffprobe not found, using native mp4 probe": "ffprobe が見つからないため内蔵の mp4 解析を使用します",
		"Decoding frame %d of stream %d at %s":      "ストリーム %d のフレーム %d を %s の位置でデコード中",

		// Contact sheet
		"Reading %d frames with %d workers": "%d フレームを %d ワーカーで読み込み中",
		"Contact sheet rendered: %dx%d":     "コンタクトシートを生成しました: %dx%d",

		// Server
		"%s %s -> %d (%s)":    "%s %s -> %d (%s)",
		"Panic recovered: %v": "パニックから回復しました: %v",

		// Warnings and errors
		"Failed to save debug output: %s": "デバッグ出力の保存に失敗しました: %s",
		"Failed to close decoder: %s":     "デコーダのクローズに失敗しました: %s",
		"Failed to read frame: %s":        "フレームの読み込みに失敗しました: %s",
		"Failed to probe: %s":             "解析に失敗しました: %s",
	})
}
