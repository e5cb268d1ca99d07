package middleware

import "net/http"

// Guard はリクエストを先に進めてよいかを判定する。
// 通過する場合は（必要に応じて情報を付与した）リクエストを返し、
// 拒否する場合はエラーを返す。エラーはそのまま失敗レスポンスになる。
type Guard func(r *http.Request) (*http.Request, error)

// Chain はGuardを順番に評価するミドルウェアを返す。
// 最初に失敗したGuardでリクエストを打ち切り、以降のGuardとハンドラーは実行しない。
func Chain(guards ...Guard) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, guard := range guards {
				guarded, err := guard(r)
				if err != nil {
					WriteError(w, err)
					return
				}
				r = guarded
			}
			next.ServeHTTP(w, r)
		})
	}
}
