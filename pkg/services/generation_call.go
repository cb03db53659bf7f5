package services

import (
	"context"

	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// complete makes one provider call bounded by the configured provider
// timeout. When the caller's ctx is done the ctx error is returned as is;
// any other failure is mapped onto ProviderError or Timeout.
func complete(ctx context.Context, provider llm.Provider, cfg models.ResolverConfig, pc llm.PromptContext) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, cfg.ProviderTimeout)
	defer cancel()

	pc.Temperature = cfg.Temperature
	text, err := provider.Complete(callCtx, pc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", llm.ToAppError(err)
	}
	return text, nil
}
