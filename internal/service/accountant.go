package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"typhoon/internal/model"
	"typhoon/internal/tokenizer"
)

// accountStream 将上游增量流转换为带累计账目的 StreamChunk 流
// 每个增量计一次 token (无分词器则记 0), 累计数严格不减,
// tokenSpeed = 累计 token / 距首次拉取的秒数, 耗时为 0 时记 0.
// 上游正常耗尽时以 Done 块收尾; 上游出错时直接关闭, 不发 Done —
// 消费者以缺失收尾块判定生成失败.
func accountStream(ctx context.Context, sr *schema.StreamReader[*schema.Message], tok *tokenizer.Tokenizer) <-chan model.StreamChunk {
	ch := make(chan model.StreamChunk, 16)

	go func() {
		defer close(ch)
		defer sr.Close()

		totalTokens := 0
		startTime := time.Now()

		for {
			msg, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				select {
				case ch <- model.StreamChunk{Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if err != nil {
				log.Error().Err(err).Msg("upstream stream failed mid-flight")
				return
			}

			totalTokens += tok.Count(msg.Content)
			elapsed := time.Since(startTime).Seconds()
			tokenSpeed := 0.0
			if elapsed > 0 {
				tokenSpeed = float64(totalTokens) / elapsed
			}

			select {
			case ch <- model.StreamChunk{
				Content:    msg.Content,
				Tokens:     totalTokens,
				TokenSpeed: tokenSpeed,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}
