package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"exchange-chat/config"
	"exchange-chat/handlers"
	"exchange-chat/logger"
	"exchange-chat/repository"
	"exchange-chat/services"
	"exchange-chat/ws"
)

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Sec-WebSocket-Protocol, Sec-WebSocket-Extensions, Sec-WebSocket-Key, Sec-WebSocket-Version, Upgrade, Connection")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		panic(err)
	}

	logger.Log.Info("starting chat server", zap.String("port", cfg.Port))

	store, err := repository.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		logger.Log.Fatal("opening store", zap.Error(err))
	}
	defer store.Close()

	hub := ws.NewHub()
	go hub.Run()

	msgSvc := services.NewMessageService(store, store.Users(), store.Requests(), store.Items(), hub, &cfg)
	convSvc := services.NewConversationService(store, store.Users(), store.Requests(), store.Items())

	h := handlers.NewChatHandler(msgSvc, convSvc, hub, &cfg)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})

	mux.HandleFunc("GET /api/chat/conversations", h.WithAuth(h.Conversations))
	mux.HandleFunc("GET /api/chat/messages/unread/count", h.WithAuth(h.UnreadCount))
	mux.HandleFunc("GET /api/chat/messages/{requestId}", h.WithAuth(h.Thread))
	mux.HandleFunc("POST /api/chat/messages", h.WithAuth(h.SendMessage))
	mux.HandleFunc("POST /api/chat/messages/image", h.WithAuth(h.SendImage))
	mux.HandleFunc("PUT /api/chat/messages/read", h.WithAuth(h.MarkRead))
	mux.HandleFunc("GET /api/chat/search-users", h.WithAuth(h.SearchUsers))
	mux.HandleFunc("DELETE /api/chat/messages/{messageId}", h.WithAuth(h.DeleteMessage))
	mux.HandleFunc("GET /ws", h.WS)

	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	handler := withCORS(logger.RequestLogger(mux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("chat server running",
			zap.String("http", "http://localhost:"+cfg.Port),
			zap.String("ws", "ws://localhost:"+cfg.Port+"/ws?token=<token>"))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("server exited")
}
