// Package main provides localization for the vidpipe CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Pipelined video encoder with scene change look-ahead.": "シーンチェンジ先読み付きのパイプライン動画エンコーダー",

		// Version command
		"vidpipe version %s": "vidpipe バージョン %s",

		// Runtime messages
		"Encoding %s to %s (%s)...":     "%s を %s にエンコード中 (%s)...",
		"Output saved to %s":            "出力を %s に保存しました",
		"Failed to close output: %s":    "出力のクローズに失敗しました: %s",
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",

		// Summary output
		"Summary saved to %s":         "サマリーを %s に保存しました",
		"Failed to write summary: %s": "サマリーの書き込みに失敗しました: %s",

		// Summary content
		"Encode Summary": "エンコードサマリー",
		"Generated":      "生成日時",
		"Error":          "エラー",
		"Item":           "項目",
		"Value":          "値",
		"Input":          "入力",
		"Settings":       "設定",
		"Result":         "実行結果",
		"Output":         "出力",

		"Interrupted before the end of the input": "入力の終端に達する前に中断されました",

		// Input section
		"Source":     "ソース",
		"Resolution": "解像度",
		"Frame Rate": "フレームレート",
		"Scan":       "走査方式",
		"Interlaced": "インターレース",

		// Settings section
		"Codec":                   "コーデック",
		"Rate Control":            "レート制御",
		"Topology":                "トポロジー",
		"Async Depth":             "非同期深度",
		"Scene Change Look-ahead": "シーンチェンジ先読み",

		// Result section
		"Frames Read":         "読み込みフレーム数",
		"Frames Written":      "書き込みフレーム数",
		"Key Frames":          "キーフレーム数",
		"forced":              "強制",
		"Output Frame Rate":   "出力フレームレート",
		"Video Duration":      "動画再生時間",
		"Encode Time":         "エンコード時間",
		"Encode Speed":        "エンコード速度",
		"Buffer Growths":      "バッファ拡張回数",
		"Device Busy Retries": "デバイスビジー再試行回数",

		// Output section
		"File":           "ファイル",
		"Container":      "コンテナ",
		"Bitstream Size": "ビットストリームサイズ",
	})
}
