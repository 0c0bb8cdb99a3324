package services

import (
	"context"
	"time"

	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
	"github.com/studyforge/studyforge-backend/internal/pkg/logger"
	"github.com/studyforge/studyforge-backend/internal/platform/llm"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/types"
)

type ModelCategory string

const (
	ModelCategoryText       ModelCategory = "text"
	ModelCategoryMultimodal ModelCategory = "multimodal"
)

// ModelAlias is one catalogue entry binding a label to a concrete provider
// model. Callers select by alias and never see provider model ids.
type ModelAlias struct {
	Alias    string
	Provider string
	ModelID  string
	Category ModelCategory
}

const (
	// AliasAuto always resolves to defaultAlias, regardless of category.
	AliasAuto = "auto"

	defaultAlias  = "balanced"
	fallbackAlias = "fast"
)

var modelCatalog = []ModelAlias{
	{Alias: "fast", Provider: "openai", ModelID: "gpt-4o-mini", Category: ModelCategoryMultimodal},
	{Alias: "balanced", Provider: "openai", ModelID: "gpt-4o", Category: ModelCategoryMultimodal},
	{Alias: "thorough", Provider: "openai", ModelID: "gpt-4.1", Category: ModelCategoryText},
	{Alias: "gemini-flash", Provider: "google", ModelID: "gemini-2.0-flash", Category: ModelCategoryMultimodal},
	{Alias: "gemini-pro", Provider: "google", ModelID: "gemini-1.5-pro", Category: ModelCategoryMultimodal},
}

// ModelSelection carries the caller's requested alias together with the
// per-user enablement list resolved upstream. An empty Enabled list means
// the full catalogue is selectable (default-allow).
type ModelSelection struct {
	Alias   string
	Enabled []string
}

type ModelPolicy struct {
	log       *logger.Logger
	providers map[string]llm.Client
	callLog   repos.ModelCallLogRepo
}

// NewModelPolicy wires the provider clients constructed at startup. callLog
// may be nil (tests); invocations are then not audited.
func NewModelPolicy(log *logger.Logger, providers map[string]llm.Client, callLog repos.ModelCallLogRepo) *ModelPolicy {
	return &ModelPolicy{
		log:       log.With("service", "ModelPolicy"),
		providers: providers,
		callLog:   callLog,
	}
}

func Catalog() []ModelAlias {
	out := make([]ModelAlias, len(modelCatalog))
	copy(out, modelCatalog)
	return out
}

func lookupAlias(alias string) (ModelAlias, bool) {
	for _, entry := range modelCatalog {
		if entry.Alias == alias {
			return entry, true
		}
	}
	return ModelAlias{}, false
}

// Resolve maps an alias to its catalogue entry and provider client. "auto"
// and the hardcoded fallback bypass the enablement list; any other alias
// must be in the list when the list is non-empty.
func (p *ModelPolicy) Resolve(sel ModelSelection) (ModelAlias, llm.Client, error) {
	alias := sel.Alias
	if alias == "" || alias == AliasAuto {
		alias = defaultAlias
	} else if len(sel.Enabled) > 0 && alias != fallbackAlias {
		found := false
		for _, enabled := range sel.Enabled {
			if enabled == alias {
				found = true
				break
			}
		}
		if !found {
			return ModelAlias{}, nil, apperr.Validation("model %q is not enabled for this user", alias)
		}
	}

	entry, ok := lookupAlias(alias)
	if !ok {
		return ModelAlias{}, nil, apperr.Validation("unknown model %q", alias)
	}
	client, ok := p.providers[entry.Provider]
	if !ok || client == nil {
		return ModelAlias{}, nil, apperr.Configuration("provider %q is not configured", entry.Provider)
	}
	return entry, client, nil
}

// Invoke runs one chat completion against the resolved alias. If the
// provider rejects the model id itself, it retries exactly once against the
// hardcoded safe fallback alias; any other provider failure is fatal.
func (p *ModelPolicy) Invoke(ctx context.Context, sel ModelSelection, operation string, req llm.Request) (string, error) {
	entry, client, err := p.Resolve(sel)
	if err != nil {
		return "", err
	}

	out, err := p.invokeOnce(ctx, entry, client, operation, req)
	if err == nil {
		return out, nil
	}
	if !llm.IsInvalidModelError(err) || entry.Alias == fallbackAlias {
		return "", apperr.ExternalService(err, "%s call failed", operation)
	}

	fb, fbClient, fbErr := p.Resolve(ModelSelection{Alias: fallbackAlias})
	if fbErr != nil {
		return "", apperr.ExternalService(err, "%s call failed and fallback unavailable", operation)
	}
	p.log.Warn("Provider rejected model, retrying once with fallback",
		"operation", operation,
		"alias", entry.Alias,
		"model", entry.ModelID,
		"fallback", fb.ModelID,
	)
	out, err = p.invokeOnce(ctx, fb, fbClient, operation, req)
	if err != nil {
		return "", apperr.ExternalService(err, "%s fallback call failed", operation)
	}
	return out, nil
}

func (p *ModelPolicy) invokeOnce(ctx context.Context, entry ModelAlias, client llm.Client, operation string, req llm.Request) (string, error) {
	req.Model = entry.ModelID
	start := time.Now()
	out, err := client.Complete(ctx, req)
	p.audit(ctx, entry, operation, time.Since(start), err)
	return out, err
}

func (p *ModelPolicy) audit(ctx context.Context, entry ModelAlias, operation string, latency time.Duration, callErr error) {
	if p.callLog == nil {
		return
	}
	logRow := &types.ModelCallLog{
		Alias:     entry.Alias,
		Provider:  entry.Provider,
		Model:     entry.ModelID,
		Operation: operation,
		LatencyMS: latency.Milliseconds(),
		Success:   callErr == nil,
	}
	if callErr != nil {
		logRow.Error = callErr.Error()
	}
	if err := p.callLog.Insert(ctx, nil, logRow); err != nil {
		p.log.Warn("Failed to audit model call", "operation", operation, "error", err)
	}
}
