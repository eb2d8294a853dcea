package portrait

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"server/internal/domain"
	imageprovider "server/internal/providers/image"
	"server/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultJobTimeout is the overall wall-clock ceiling per generation job,
// enforced on top of each provider's own bounded polling.
const DefaultJobTimeout = 5 * time.Minute

// OptimizeFunc normalizes an uploaded image payload before provider submission.
type OptimizeFunc func(data []byte, mimeType string) ([]byte, string, error)

// OrchestratorOptions wires the orchestrator's collaborators. Generator,
// Cache, and Tracker are required; Moderator, Store, and Optimize are
// optional.
type OrchestratorOptions struct {
	Generator      imageprovider.Generator
	Cache          *ResultCache
	Tracker        *Tracker
	Moderator      Moderator
	Store          *storage.FileStore
	StorageBaseURL string
	Optimize       OptimizeFunc
	Logger         zerolog.Logger
	JobTimeout     time.Duration
}

// Orchestrator is the generation request handler: it validates input,
// resolves the quality profile, builds prompts, consults the result cache,
// submits to the provider, and feeds job progress to the tracker.
type Orchestrator struct {
	generator      imageprovider.Generator
	cache          *ResultCache
	tracker        *Tracker
	moderator      Moderator
	store          *storage.FileStore
	storageBaseURL string
	optimize       OptimizeFunc
	logger         zerolog.Logger
	jobTimeout     time.Duration
	flight         singleflight.Group
}

// NewOrchestrator validates and assembles the orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Generator == nil {
		return nil, errors.New("portrait: generator is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("portrait: result cache is required")
	}
	if opts.Tracker == nil {
		return nil, errors.New("portrait: tracker is required")
	}
	jobTimeout := opts.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &Orchestrator{
		generator:      opts.Generator,
		cache:          opts.Cache,
		tracker:        opts.Tracker,
		moderator:      opts.Moderator,
		store:          opts.Store,
		storageBaseURL: opts.StorageBaseURL,
		optimize:       opts.Optimize,
		logger:         opts.Logger,
		jobTimeout:     jobTimeout,
	}, nil
}

// Tracker exposes the job progress tracker for the HTTP layer.
func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// Submit validates a request and either serves it from the cache or starts an
// asynchronous generation. It returns the request id immediately; progress is
// observable through the tracker. fromCache reports whether the job was
// satisfied without a provider call.
func (o *Orchestrator) Submit(ctx context.Context, req GenerationRequest) (id string, fromCache bool, err error) {
	req.Options.Normalize()
	if err := req.Validate(); err != nil {
		return "", false, err
	}
	if o.moderator != nil {
		if err := o.moderator.Review(req.Options); err != nil {
			return "", false, err
		}
	}

	id = uuid.NewString()
	fingerprint := Fingerprint(req)

	if cached, ok := o.cache.Get(fingerprint); ok {
		cached.FromCache = true
		o.tracker.Create(id)
		o.tracker.Complete(id, cached)
		o.logger.Info().Str("request_id", id).Msg("generation served from cache")
		return id, true, nil
	}

	o.tracker.Create(id)
	go o.run(id, fingerprint, req)
	return id, false, nil
}

// run executes one generation attempt to its terminal state. Errors never
// escape; everything ends as a terminal job state with a classed error.
func (o *Orchestrator) run(id, fingerprint string, req GenerationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), o.jobTimeout)
	defer cancel()

	profile := ResolveQuality(req.Options.QualityMode)
	positive, negative := BuildPrompts(req.Options, profile)

	o.tracker.Update(id, domain.JobStatusGenerating, 0.02, "preparing source image")

	data, err := req.Image.Decode()
	if err != nil {
		o.tracker.Fail(id, err)
		return
	}
	mimeType := req.Image.MimeType
	if o.optimize != nil {
		optimized, optimizedMime, optErr := o.optimize(data, mimeType)
		if optErr != nil {
			o.logger.Warn().Err(optErr).Str("request_id", id).
				Msg("source image optimization failed, using original upload")
		} else {
			data, mimeType = optimized, optimizedMime
		}
	}

	providerReq := imageprovider.Request{
		Prompt:         positive,
		NegativePrompt: negative,
		SourceData:     data,
		SourceMIME:     mimeType,
		Strength:       req.Options.Strength,
		Width:          profile.Width,
		Height:         profile.Height,
		Steps:          profile.Steps,
		GuidanceScale:  profile.GuidanceScale,
		Sampler:        profile.Sampler,
		Scheduler:      profile.Scheduler,
		ModelID:        profile.ModelID,
		Seed:           seedFromFingerprint(fingerprint),
		RequestID:      id,
	}

	// Concurrent submissions with the same fingerprint collapse into one
	// provider call; followers block until the leader finishes and share its
	// result. Progress callbacks only feed the leader's job.
	v, err, shared := o.flight.Do(fingerprint, func() (any, error) {
		return o.generator.Generate(ctx, providerReq, func(progress float64, message string) {
			o.tracker.Update(id, domain.JobStatusGenerating, progress, message)
		})
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = domain.WrapError(domain.ErrClassTimeout,
				fmt.Sprintf("generation exceeded the %s ceiling", o.jobTimeout), err)
		}
		o.logger.Error().Err(err).Str("request_id", id).Str("provider", o.generator.Name()).
			Msg("generation failed")
		o.tracker.Fail(id, err)
		return
	}
	providerResult := v.(*imageprovider.Result)
	if shared {
		o.logger.Debug().Str("request_id", id).Msg("generation shared an in-flight provider call")
	}

	result, err := o.materialize(ctx, id, providerResult)
	if err != nil {
		o.tracker.Fail(id, err)
		return
	}

	o.cache.Put(fingerprint, result)
	o.tracker.Complete(id, result)
	o.logger.Info().Str("request_id", id).Str("provider", result.Provider).
		Str("model", result.ModelID).Msg("generation completed")
}

// materialize turns a provider result into a client-facing one: hosted URLs
// pass through, raw bytes are persisted to local storage when configured and
// inlined as a data URI otherwise.
func (o *Orchestrator) materialize(ctx context.Context, id string, res *imageprovider.Result) (domain.GenerationResult, error) {
	result := domain.GenerationResult{
		ImageURL:    res.URL,
		Provider:    res.Provider,
		ModelID:     res.ModelID,
		Width:       res.Width,
		Height:      res.Height,
		GeneratedAt: time.Now(),
	}
	if result.ImageURL != "" {
		return result, nil
	}
	if len(res.Data) == 0 {
		return domain.GenerationResult{}, domain.NewError(domain.ErrClassProvider,
			"provider returned neither an image URL nor image data")
	}

	format := res.Format
	if format == "" {
		format = "png"
	}
	if o.store != nil {
		key := fmt.Sprintf("generated/%s.%s", id, format)
		savedKey, err := o.store.Write(ctx, key, res.Data)
		if err == nil {
			result.ImageURL = storage.ResolveURL(o.storageBaseURL, savedKey)
			return result, nil
		}
		o.logger.Warn().Err(err).Str("request_id", id).
			Msg("failed to persist generated image, falling back to data URI")
	}
	result.ImageURL = imageprovider.DataURI("image/"+format, res.Data)
	return result, nil
}

// seedFromFingerprint derives a stable per-request seed so identical requests
// stay deterministic across providers that honor seeding.
func seedFromFingerprint(fingerprint string) int64 {
	if len(fingerprint) < 15 {
		return 0
	}
	seed, err := strconv.ParseInt(fingerprint[:15], 16, 64)
	if err != nil {
		return 0
	}
	return seed
}
