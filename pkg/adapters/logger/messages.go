package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Pipeline level messages (info)
		"Starting pipeline":                     "パイプラインを開始します",
		"Topology %s, async depth %d, %d tasks": "トポロジー %s, 非同期深度 %d, タスク数 %d",
		"Encoded %d frames, %d bytes":           "%d フレームをエンコードしました (%d バイト)",

		// Setup
		"Pools: %s %d, %s %d, tasks %d of %d bytes":    "プール: %s %d, %s %d, タスク %d 個 (各 %d バイト)",
		"Surface pools use %d MiB of %d MiB available": "サーフェスプールは利用可能な %[2]d MiB のうち %[1]d MiB を使用します",
		"Memory budget check skipped: %s":              "メモリ予算の確認をスキップしました: %s",
		"Initialized %dx%d %s, %d slots":               "%dx%d %s を初期化しました (スロット数 %d)",
		"Stream %dx%d at %d:%d fps, %s":                "ストリーム %dx%d, %d:%d fps, %s",

		// Steady state
		"Frame %d hint: %s":                                     "フレーム %d のヒント: %s",
		"Bitstream too small, grew task %d from %d to %d bytes": "ビットストリームが不足したため、タスク %d を %d から %d バイトに拡張しました",
		"Grew bitstream of task %d to %d bytes":                 "タスク %d のビットストリームを %d バイトに拡張しました",
		"End of stream queued after %d frames":                  "%d フレームの後にストリーム終端を登録しました",
		"End of stream after %d frames":                         "%d フレームでストリームが終了しました",
		"Analyzed %d frames":                                    "%d フレームを解析しました",
		"Generated %d frames":                                   "%d フレームを生成しました",
		"Read %d frames":                                        "%d フレームを読み込みました",

		// Output
		"Wrote %d frames, %d bytes to %s":     "%d フレーム (%d バイト) を %s に書き込みました",
		"Muxed %d samples into %s (%d bytes)": "%d サンプルを %s に多重化しました (%d バイト)",

		// Shutdown
		"Abandoning %d tasks in flight": "処理中の %d タスクを破棄します",
		"Discarding %d tasks in flight": "処理中の %d タスクを破棄します",
		"Analysis stopped: %s":          "解析を停止しました: %s",

		// Warnings
		"VPP warning: %s":                                                 "VPP 警告: %s",
		"Encode warning: %s":                                              "エンコード警告: %s",
		"Encode of task %d completed with warning: %s":                    "タスク %d のエンコードは警告付きで完了しました: %s",
		"Surface pools need %d MiB, more than %.0f%% of available memory": "サーフェスプールには %d MiB が必要で、利用可能メモリの %.0f%% を超えます",
		"Interrupted after %d frames":                                     "%d フレームで中断されました",

		// Errors
		"Pipeline setup failed: %s": "パイプラインの準備に失敗しました: %s",
		"Pipeline failed: %s":       "パイプラインが失敗しました: %s",
	})
}
