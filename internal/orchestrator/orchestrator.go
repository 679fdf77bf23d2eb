package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/valpere/perevoice/internal/translator"
	"github.com/valpere/perevoice/internal/validator"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
)

// ErrNoServices is returned by Translate when nothing is configured.
var ErrNoServices = errors.New("no translation services configured")

type OrchestratorConfig struct {
	// Timeout bounds each attempt against one service.
	Timeout time.Duration
	// MaxAttempts is the total number of tries per service, first included.
	MaxAttempts int
	RetryDelay  time.Duration
}

type OrchestratorResult struct {
	// Results holds successful results in service configuration order.
	Results   []translator.ServiceResult
	Errors    []error
	Succeeded int
	Failed    int
}

// Err combines every per-service failure into one error, or returns nil
// when at least one service succeeded.
func (r *OrchestratorResult) Err() error {
	if r.Succeeded > 0 {
		return nil
	}
	return multierr.Combine(r.Errors...)
}

// Best returns the highest-confidence result. Ties go to the service
// configured first. It returns nil when nothing succeeded.
func (r *OrchestratorResult) Best() *translator.ServiceResult {
	var best *translator.ServiceResult
	for i := range r.Results {
		if best == nil || r.Results[i].Confidence > best.Confidence {
			best = &r.Results[i]
		}
	}
	return best
}

// Orchestrator fans a request out to every configured service in parallel.
type Orchestrator struct {
	services  []translator.TranslationService
	config    OrchestratorConfig
	validator *validator.Validator
}

// New creates an Orchestrator. v may be nil to skip target-language
// validation of results.
func New(services []translator.TranslationService, config OrchestratorConfig, v *validator.Validator) *Orchestrator {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}
	return &Orchestrator{
		services:  services,
		config:    config,
		validator: v,
	}
}

// Services returns the configured services in order.
func (o *Orchestrator) Services() []translator.TranslationService {
	return o.services
}

func (o *Orchestrator) Execute(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) *OrchestratorResult {
	type outcome struct {
		res *translator.ServiceResult
		err error
	}

	outcomes := make([]outcome, len(o.services))

	var wg sync.WaitGroup
	for i, svc := range o.services {
		wg.Add(1)
		go func(index int, service translator.TranslationService) {
			defer wg.Done()
			res, err := o.translateWithRetry(ctx, service, cfg, req)
			outcomes[index] = outcome{res: res, err: err}
		}(i, svc)
	}
	wg.Wait()

	result := &OrchestratorResult{
		Results: make([]translator.ServiceResult, 0, len(o.services)),
	}
	for _, oc := range outcomes {
		if oc.err != nil {
			result.Errors = append(result.Errors, oc.err)
			result.Failed++
			continue
		}
		result.Results = append(result.Results, *oc.res)
		result.Succeeded++
	}

	return result
}

// Translate runs Execute and returns the best result, or the combined
// error when every service failed.
func (o *Orchestrator) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	if len(o.services) == 0 {
		return nil, ErrNoServices
	}
	result := o.Execute(ctx, cfg, req)
	if err := result.Err(); err != nil {
		return nil, err
	}
	return result.Best(), nil
}

// translateWithRetry tries one service up to MaxAttempts times. A result
// that fails language validation is retried too; if no attempt produces a
// valid one, the last invalid result is returned with lowered confidence.
func (o *Orchestrator) translateWithRetry(ctx context.Context, service translator.TranslationService, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	var (
		lastErr     error
		lastInvalid *translator.ServiceResult
	)

	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w", service.Name(), ctx.Err())
			case <-time.After(o.config.RetryDelay):
			}
		}

		res, err := o.attempt(ctx, service, cfg, req)
		if err == nil {
			verr := o.validate(res, req.TargetLang)
			if verr == nil {
				return res, nil
			}
			lastInvalid = res
			continue
		}
		lastErr = err

		// A rejected language code or an expired caller will not improve.
		if errors.Is(err, translator.ErrUnsupportedLanguage) || ctx.Err() != nil {
			break
		}
	}

	if lastInvalid != nil {
		return lastInvalid, nil
	}
	return nil, lastErr
}

func (o *Orchestrator) attempt(ctx context.Context, service translator.TranslationService, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	serviceCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	res, err := service.Translate(serviceCtx, cfg, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", service.Name(), err)
	}
	if res == nil {
		return nil, fmt.Errorf("%s: no result", service.Name())
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%s: %s", res.ServiceName, res.Error)
	}
	return res, nil
}

// validate marks res when it is not in targetLang.
func (o *Orchestrator) validate(res *translator.ServiceResult, targetLang string) error {
	if o.validator == nil {
		return nil
	}
	ok, err := o.validator.IsValid(res.TranslatedText, targetLang)
	if ok {
		return nil
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	res.Metadata["validation"] = err.Error()
	res.Confidence /= 2
	return err
}
