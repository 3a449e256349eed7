package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	coreingestion "github.com/jinford/faq-rag/internal/core/ingestion"
)

// CrawlAction は単一ページを取り込むコマンドのアクション
func CrawlAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	url := cmd.Args().First()
	if url == "" {
		return fmt.Errorf("URLを指定してください")
	}

	params := coreingestion.CrawlParams{
		URL:      url,
		MaxPages: cmd.Int("max-pages"),
	}
	if cmd.IsSet("selector") {
		params.Selector = mo.Some(cmd.String("selector"))
	}

	appCtx, err := NewAppContext(ctx, envFile, nil)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.CrawlService.Crawl(ctx, params)
	if err != nil {
		slog.Error("クロールに失敗しました", "url", url, "error", err)
		return err
	}

	fmt.Printf("%s\n", result.Message)
	fmt.Printf("  jobId:        %s\n", result.JobID)
	fmt.Printf("  documentId:   %s\n", result.DocumentID)
	fmt.Printf("  pagesCrawled: %d\n", result.PagesCrawled)
	return nil
}
