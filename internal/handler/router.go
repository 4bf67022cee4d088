// Package handler はリクエストのルーティングとレスポンスの生成を担う
//
// ルーティングは優先順位付きの先勝ちで、パスの比較はバイト単位の前方一致で行う。
//  1. GET 以外          → 405 Method Not Allowed
//  2. "/static" で始まる → 静的ファイル
//  3. "/stats" と一致   → 統計
//  4. "/calc" で始まる   → 計算
//  5. それ以外          → 404 Not Found
package handler

import (
	"strings"

	"minihttpd/internal/request"
	"minihttpd/internal/response"
	"minihttpd/internal/stats"
)

// ルーティング用のパス
const (
	StaticPrefix = "/static"
	StatsPath    = "/stats"
	CalcPrefix   = "/calc"
)

// Handler はリクエストからレスポンスを生成する
type Handler interface {
	Handle(req request.Request) *response.Response
}

// HandlerFunc は関数をHandlerとして扱うためのアダプタ
type HandlerFunc func(req request.Request) *response.Response

// Handle は f(req) を呼ぶ
func (f HandlerFunc) Handle(req request.Request) *response.Response {
	return f(req)
}

// Stats は統計ハンドラが必要とするインターフェース
type Stats interface {
	stats.Recorder
	stats.Reader
}

// Route はルーティング結果の種別
type Route int

const (
	RouteMethodNotAllowed Route = iota
	RouteStatic
	RouteStats
	RouteCalc
	RouteNotFound
)

func (r Route) String() string {
	switch r {
	case RouteMethodNotAllowed:
		return "method_not_allowed"
	case RouteStatic:
		return "static"
	case RouteStats:
		return "stats"
	case RouteCalc:
		return "calc"
	default:
		return "not_found"
	}
}

// Match はリクエストに対応するRouteを返す
func Match(req request.Request) Route {
	switch {
	case req.Method != "GET":
		return RouteMethodNotAllowed
	case strings.HasPrefix(req.Path, StaticPrefix):
		return RouteStatic
	case req.Path == StatsPath:
		return RouteStats
	case strings.HasPrefix(req.Path, CalcPrefix):
		return RouteCalc
	default:
		return RouteNotFound
	}
}

// Router はRouteごとのハンドラを保持する
type Router struct {
	handlers map[Route]Handler
}

// NewRouter は新しいRouterを作成する
func NewRouter(files FileSource, st Stats) *Router {
	return &Router{
		handlers: map[Route]Handler{
			RouteMethodNotAllowed: HandlerFunc(MethodNotAllowed),
			RouteStatic:           NewStaticHandler(files, st),
			RouteStats:            NewStatsHandler(st),
			RouteCalc:             HandlerFunc(Calc),
			RouteNotFound:         HandlerFunc(NotFound),
		},
	}
}

// Handle はルーティングしてレスポンスを生成する
func (r *Router) Handle(req request.Request) *response.Response {
	return r.handlers[Match(req)].Handle(req)
}
