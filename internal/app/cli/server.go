package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/jinford/faq-rag/internal/interface/httpapi"
	"github.com/jinford/faq-rag/internal/platform/config"
)

// ServerStartAction はHTTPサーバを起動するコマンドのアクション
func ServerStartAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化（フラグ指定時は環境変数より優先）
	appCtx, err := NewAppContext(ctx, envFile, func(cfg *config.Config) {
		if cmd.IsSet("port") {
			cfg.Server.Port = cmd.Int("port")
		}
		if cmd.IsSet("store") {
			cfg.Server.Store = config.StoreBackend(cmd.String("store"))
		}
	})
	if err != nil {
		return err
	}
	defer appCtx.Close()

	cont := appCtx.Container
	server := httpapi.NewServer(cont.CrawlService, cont.AskService, httpapi.WithLogger(appCtx.Logger()))

	appCtx.Logger().Info("サーバーを起動します",
		"port", appCtx.Config.Server.Port,
		"store", appCtx.Config.Server.Store,
	)
	return server.Start(ctx, appCtx.Config.Server.Port, appCtx.Config.Server.ShutdownTimeout)
}
