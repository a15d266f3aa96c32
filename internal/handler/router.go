package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pollman/internal/middleware"
)

// HealthChecker はヘルスチェックの依存接続確認に必要なインターフェース。
// *sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetricsRecorder // nil可

	// サービス
	AuthService  AuthServiceInterface
	PollService  PollServiceInterface
	VoteService  VoteServiceInterface
	AdminService AdminServiceInterface

	// ドメインメトリクス（いずれもnil可。metrics.Collectorが全てを実装する）
	AuthMetrics  AuthMetrics
	PollMetrics  PollMetrics
	AdminMetrics AdminMetrics

	// 運用エンドポイント
	MetricsHandler http.Handler // nilの場合/metricsは公開しない
	Health         HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging
//
// 認証が必要なルートにはAuthMiddlewareを、管理ルートにはさらに
// RequireAdminMiddlewareを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authMW := middleware.NewAuthMiddleware(deps.TokenVerifier)
	adminMW := middleware.NewRequireAdminMiddleware()

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthMetrics)
	pollHandler := NewPollHandler(deps.PollService, deps.VoteService, deps.PollMetrics)
	adminHandler := NewAdminHandler(deps.AdminService, deps.AuthService, deps.AdminMetrics)

	// --- 認証不要のルート ---

	r.Get("/", handleRoot)
	r.Get("/health", healthHandlerFunc(deps.Health))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/token/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
	})

	// 投票の一覧と詳細は公開。作成・投票・クローズは認証が必要。
	r.Route("/polls", func(r chi.Router) {
		r.Get("/", pollHandler.ListPolls)
		r.With(authMW).Post("/polls", pollHandler.CreatePoll)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", pollHandler.GetPollDetails)
			r.With(authMW).Post("/vote", pollHandler.Vote)
			r.With(authMW).Post("/close", pollHandler.ClosePoll)
		})
	})

	// --- 管理ルート（認証 + adminロール必須） ---

	r.Route("/admin", func(r chi.Router) {
		r.Use(authMW)
		r.Use(adminMW)

		r.Post("/users", adminHandler.CreateUser)
		r.Delete("/users/{id}", adminHandler.DeleteUser)
		r.Get("/choices", adminHandler.ListChoices)

		r.Route("/polls", func(r chi.Router) {
			r.Post("/", adminHandler.CreatePoll)
			r.Post("/check-and-close", adminHandler.CheckAndClosePolls)
			r.Put("/{id}", adminHandler.UpdatePoll)
			r.Delete("/{id}", adminHandler.DeletePoll)
		})
	})

	return r
}

// handleRoot はルートパスへの挨拶レスポンスを返す。
// GET /
func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, messageResponse{Message: "Hello, Pollman!"})
}

// healthHandlerFunc はDB接続を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandlerFunc(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
