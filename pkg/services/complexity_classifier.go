package services

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/prompts"
)

// ComplexityClassifier picks the generation tier for a question.
type ComplexityClassifier interface {
	// Classify returns the tier the provider chose. When the answer cannot
	// be mapped to a tier it returns TierNested together with a
	// ClassificationParseError; provider failures also come back with
	// TierNested so the caller can always proceed.
	Classify(ctx context.Context, question models.Question, links models.SchemaLinkSet, dialect models.Dialect) (models.ComplexityTier, error)
}

type complexityClassifier struct {
	provider llm.Provider
	cfg      models.ResolverConfig
	logger   *zap.Logger
}

func NewComplexityClassifier(provider llm.Provider, cfg models.ResolverConfig, logger *zap.Logger) ComplexityClassifier {
	return &complexityClassifier{
		provider: provider,
		cfg:      cfg,
		logger:   logger.Named("classifier"),
	}
}

var _ ComplexityClassifier = (*complexityClassifier)(nil)

func (c *complexityClassifier) Classify(ctx context.Context, question models.Question, links models.SchemaLinkSet, dialect models.Dialect) (models.ComplexityTier, error) {
	text, err := complete(ctx, c.provider, c.cfg, llm.PromptContext{
		Component: llm.ComponentClassifier,
		System:    prompts.ClassifierSystem,
		Prompt:    prompts.BuildClassifierPrompt(question, links, dialect),
	})
	if err != nil {
		return models.TierNested, err
	}

	tier, ok := ParseTier(text)
	if !ok {
		c.logger.Info("Classifier answer has no tier label",
			zap.String("response", logging.TruncateString(text, 200)))
		return models.TierNested, apperrors.New(apperrors.KindClassificationParseError,
			"classifier answer names no complexity tier")
	}
	return tier, nil
}

var tierLinePattern = regexp.MustCompile(`(?i)tier:(.*)`)

// ParseTier reads a tier out of a classifier answer. It accepts, in order
// of preference: the last "TIER: <label>" line, a JSON object with a
// "tier" field, or an answer that is a bare label. Labels are matched
// whole, never as substrings.
func ParseTier(text string) (models.ComplexityTier, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		m := tierLinePattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		if tier, ok := models.ParseComplexityTier(trimLabel(m[1])); ok {
			return tier, true
		}
	}

	if parsed, err := llm.ParseJSONResponse[struct {
		Tier string `json:"tier"`
	}](text); err == nil {
		if tier, ok := models.ParseComplexityTier(trimLabel(parsed.Tier)); ok {
			return tier, true
		}
	}

	return models.ParseComplexityTier(trimLabel(text))
}

func trimLabel(s string) string {
	return strings.Trim(strings.TrimSpace(s), "`*\"'.:")
}
