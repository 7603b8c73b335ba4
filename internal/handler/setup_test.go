package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/config"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/coordinator"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/hub"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/ledger"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/repository"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/service"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/database"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/jwt"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/middleware"
)

type stack struct {
	hub    *hub.Hub
	coord  *coordinator.Coordinator
	tokens *jwt.Manager
	repo   repository.AccountRepository
	owners service.OwnerDirectory
	ws     *WSHandler
	mux    *http.ServeMux
}

func newStack(t *testing.T, accounts ...domain.Account) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(&database.Config{Driver: "sqlite", FilePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.AccountModel{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo := repository.NewGormAccountRepository(db)
	require.NoError(t, repository.Seed(context.Background(), repo, accounts))

	tokens, err := jwt.NewManager("test-secret", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	wsHub := hub.NewHub(config.WebSocketConfig{
		PingInterval:   time.Minute,
		PongWait:       2 * time.Minute,
		WriteWait:      time.Second,
		MaxMessageSize: 65536,
		SendBuffer:     64,
	})
	go wsHub.Run(ctx)

	coord := coordinator.New(wsHub, nil, coordinator.Config{QueueSize: 64, MaxChildren: 2})
	go coord.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-coord.Done()
	})

	owners := service.NewOwnerDirectory(repo, nil, time.Minute)
	tipSvc := service.NewTipService(ledger.New(repo, owners, coord), coord, nil)

	r := gin.New()
	NewHandler(tipSvc, coord, middleware.NewAuthMiddleware(tokens)).RegisterRoutes(r)

	ws := NewWSHandler(wsHub, coord, tokens, owners)
	mux := http.NewServeMux()
	ws.RegisterRoutes(mux)
	mux.Handle("/", r)

	return &stack{hub: wsHub, coord: coord, tokens: tokens, repo: repo, owners: owners, ws: ws, mux: mux}
}

func (s *stack) token(t *testing.T, username string) string {
	t.Helper()
	tok, err := s.tokens.Issue("id-"+username, username, time.Minute)
	require.NoError(t, err)
	return tok
}
