package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/faq-rag/internal/app/cli"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "faq-rag",
		Usage: "Webページを取り込み、RAGでFAQに回答するシステム",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は環境変数 HTTP_PORT またはデフォルトの8080）",
								Value: 8080,
							},
							&cli.StringFlag{
								Name:  "store",
								Usage: "ベクトルストア（postgres | memory）",
								Value: "postgres",
							},
						},
						Action: appcli.ServerStartAction,
					},
				},
			},
			{
				Name:      "crawl",
				Usage:     "単一ページを取り込む",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:  "selector",
						Usage: "本文を抽出するCSSセレクタ（省略時は body から抽出）",
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "ジョブに記録する最大ページ数",
						Value: 10,
					},
				},
				Action: appcli.CrawlAction,
			},
			{
				Name:      "ask",
				Usage:     "取り込み済みのページをもとに質問に回答",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:  "user",
						Usage: "ユーザーID（指定時のみ会話を保存）",
					},
					&cli.StringFlag{
						Name:  "conversation",
						Usage: "既存の会話ID",
					},
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "参照ソースを表示",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "db",
				Usage: "データベース管理コマンド",
				Commands: []*cli.Command{
					{
						Name:   "migrate",
						Usage:  "スキーマを適用",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.DBMigrateAction,
					},
					{
						Name:   "verify",
						Usage:  "必須テーブルの存在を確認",
						Flags:  []cli.Flag{envFlag()},
						Action: appcli.DBVerifyAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
