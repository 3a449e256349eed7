package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	coreask "github.com/jinford/faq-rag/internal/core/ask"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	// フラグの取得
	showSources := cmd.Bool("show-sources")
	envFile := cmd.String("env")

	// 質問文の取得
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	params := coreask.AnswerParams{
		Message:        question,
		ConversationID: mo.None[uuid.UUID](),
		UserID:         mo.EmptyableToOption(cmd.String("user")),
	}
	if raw := cmd.String("conversation"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("会話IDが不正です: %w", err)
		}
		params.ConversationID = mo.Some(id)
	}

	appCtx, err := NewAppContext(ctx, envFile, nil)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.AskService.Answer(ctx, params)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	// 結果出力
	fmt.Println(result.Message)

	if id, ok := result.ConversationID.Get(); ok {
		fmt.Printf("\n会話ID: %s\n", id)
	}

	// --show-sourcesフラグが指定されている場合、参照ソースも出力
	if showSources && len(result.Sources) > 0 {
		fmt.Println("\n--- 参照ソース ---")
		for i, source := range result.Sources {
			fmt.Printf("[%d] %s <%s> スコア: %.4f\n",
				i+1,
				derefOr(source.Title, "(untitled)"),
				derefOr(source.URL, "-"),
				source.Similarity,
			)
		}
	}

	return nil
}

func derefOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}
