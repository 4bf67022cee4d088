// Package logging はサーバー全体で使うslogロガーを構築する
//
// 出力形式: TIMESTAMP [level] メッセージ | key=value key=value
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// levelSilent は全てのログを抑制するレベル
const levelSilent = slog.Level(100)

// NewLogger は指定レベル以上を w に出力するロガーを作成する
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewLineHandler(w, level))
}

// NewDiscardLogger は何も出力しないロガーを作成する (テスト用)
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewLineHandler(io.Discard, levelSilent))
}

// LevelFromString は文字列をslog.Levelに変換する
// 不明な文字列の場合は info を返す
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LineHandler は1レコードを1行で出力するslog.Handler
type LineHandler struct {
	w      io.Writer
	level  slog.Leveler
	prefix string      // WithGroupで積まれたグループ名 ("a.b.")
	attrs  []slog.Attr // WithAttrsで追加済みの属性 (キーは解決済み)
	mu     *sync.Mutex
}

// NewLineHandler は新しいLineHandlerを作成する
func NewLineHandler(w io.Writer, level slog.Leveler) *LineHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LineHandler{w: w, level: level, mu: &sync.Mutex{}}
}

// Enabled は指定レベルのログを出力するかどうかを返す
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle はレコードを整形して書き込む
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteString(" [")
	buf.WriteString(levelName(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	sep := " | "
	for _, a := range attrs {
		if a.Key == "" {
			continue
		}
		buf.WriteString(sep)
		sep = " "
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(a.Value.Resolve()))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs は属性を追加したハンドラを返す
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return &next
}

// WithGroup はグループ名を追加したハンドラを返す
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *LineHandler) qualify(a slog.Attr) slog.Attr {
	if h.prefix == "" || a.Key == "" {
		return a
	}
	return slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
}

func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

// formatValue は値を文字列化する。空白を含む文字列はクォートする
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return strconv.Quote(err.Error())
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}
