// Package server は、TCP接続を受け付けてHTTP/1.1のリクエストを処理します。
//
// このパッケージは、待ち受け、接続ごとのワーカーの起動、
// 同時処理数の制限、グレースフルシャットダウンを担当します。
//
// 責務:
//   - ポートでの待ち受けと接続の受け付け (Listener)
//   - 1接続につき1つのワーカーによる read → parse → 集計 → 応答 → close
//   - 統計カウンタの更新
//   - 管理APIの起動 (設定で有効な場合)
//
// 仕様:
//   - 1接続で処理するリクエストは1つだけ (keep-alive なし)
//   - 読み込みは1回、最大で read_buffer_size バイト
//   - 読み書きには期限を設定し、期限切れの接続は破棄する
//   - 同時に処理する接続数は max_connections で制限する (0 は無制限)
//   - accept/read/write の失敗はログに出すだけで、サーバーは停止しない
package server
