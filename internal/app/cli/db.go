package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/faq-rag/internal/platform/container"
)

// DBMigrateAction はスキーマを適用するコマンドのアクション
func DBMigrateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, appLogger, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}

	store, err := container.OpenPostgresStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	appLogger.Info("スキーマを適用しました", "dimension", cfg.OpenAI.EmbeddingDimension)
	return nil
}

// DBVerifyAction は必須テーブルの存在を確認するコマンドのアクション
func DBVerifyAction(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}

	store, err := container.OpenPostgresStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	missing, err := store.VerifyTables(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("テーブルが存在しません: %s（db migrate を実行してください）", strings.Join(missing, ", "))
	}

	fmt.Println("すべてのテーブルが存在します")
	return nil
}
