package translator

import (
	"context"
	"fmt"
	"time"

	"subtrans/internal/llm"
	"subtrans/internal/subtitle"
	"subtrans/pkg/log"
)

// llmTranslator translates batches through an OpenAI-compatible chat
// endpoint, repairing reply shape via Reconcile.
type llmTranslator struct {
	client        *llm.Client
	sourceLang    string
	targetLang    string
	warmupTimeout time.Duration
	warmed        bool
}

// NewLLMTranslator creates a translator for the given language pair.
// sourceLang may be empty when unknown. Until the first request
// succeeds, requests use warmupTimeout instead of the client default,
// since local models may need to load first.
func NewLLMTranslator(client *llm.Client, sourceLang, targetLang string, warmupTimeout time.Duration) Translator {
	return &llmTranslator{
		client:        client,
		sourceLang:    sourceLang,
		targetLang:    targetLang,
		warmupTimeout: warmupTimeout,
	}
}

func (t *llmTranslator) TranslateBatch(ctx context.Context, batch Batch) ([]string, error) {
	sources := make([]string, len(batch.Lines))
	for i, line := range batch.Lines {
		sources[i] = subtitle.FlattenText(line.Text)
	}

	prompt := buildPrompt(sources, t.sourceLang, t.targetLang)

	var opts []llm.RequestOption
	if !t.warmed && t.warmupTimeout > 0 {
		opts = append(opts, llm.WithTimeout(t.warmupTimeout))
		log.Debug("first request of this run, allowing up to %s for model warm-up", t.warmupTimeout)
	}

	reply, err := t.client.Complete(ctx, prompt, systemPrompt, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm translation failed: %w", err)
	}
	t.warmed = true

	return Reconcile(reply, sources), nil
}
