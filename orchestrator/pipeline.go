package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/vibetunes/vibetunes-backend/clients"
	cfg "github.com/vibetunes/vibetunes-backend/config"
	"github.com/vibetunes/vibetunes-backend/metrics"
	"github.com/vibetunes/vibetunes-backend/mood"
	"github.com/vibetunes/vibetunes-backend/simulate"
)

// Classifier scores one image with one remote model.
type Classifier interface {
	Classify(ctx context.Context, modelURL string, image []byte) ([]clients.EmoScore, error)
	Configured() bool
}

type Pipeline struct {
	cfg        *cfg.Root
	classifier Classifier
	engine     *mood.Engine
	metrics    *metrics.Detection
	log        logrus.FieldLogger
	clock      clockwork.Clock
	rand       simulate.Source
}

type Option func(*Pipeline)

func WithClock(c clockwork.Clock) Option { return func(p *Pipeline) { p.clock = c } }

func WithRandom(src simulate.Source) Option { return func(p *Pipeline) { p.rand = src } }

func WithLogger(l logrus.FieldLogger) Option { return func(p *Pipeline) { p.log = l } }

func NewPipeline(c *cfg.Root, classifier Classifier, engine *mood.Engine, m *metrics.Detection, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        c,
		classifier: classifier,
		engine:     engine,
		metrics:    m,
		log:        logrus.StandardLogger(),
		clock:      clockwork.NewRealClock(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.rand == nil {
		p.rand = simulate.NewSource(0)
	}
	return p
}

// Configured reports whether the model API token is available.
func (p *Pipeline) Configured() bool { return p.classifier.Configured() }

// Detect runs every configured model over the image and resolves one mood.
// requestID is kept when it is a UUID and replaced with a fresh one otherwise.
func (p *Pipeline) Detect(ctx context.Context, requestID string, req DetectRequest) (*Detection, error) {
	if req.Image == "" {
		return nil, ErrNoImage
	}
	if !p.classifier.Configured() {
		return nil, ErrNotConfigured
	}
	img, err := decodeImage(req.Image)
	if err != nil {
		return nil, err
	}
	// The ID names the on-disk record, so only UUIDs are taken from callers.
	if _, err := uuid.Parse(requestID); err != nil {
		requestID = uuid.NewString()
	}
	log := p.log.WithField("request_id", requestID)

	results := p.query(ctx, log, img)
	if len(results) == 0 {
		if !p.cfg.Simulation.Enabled {
			return nil, ErrAllModelsFailed
		}
		log.Warn("All AI models failed, using enhanced simulation")
		det := p.simulated(requestID)
		p.persist(log, det, nil)
		return det, nil
	}

	res := p.engine.Resolve(results[0], results)
	mapped := p.engine.Map(res.Emotion)
	p.metrics.Decisions.WithLabelValues(string(res.Decision)).Inc()
	p.metrics.Moods.WithLabelValues(string(mapped)).Inc()

	log.WithFields(logrus.Fields{
		"mood":       mapped,
		"emotion":    res.Emotion,
		"confidence": res.Confidence,
		"decision":   res.Decision,
		"models":     len(results),
	}).Info("Final result")

	det := &Detection{
		RequestID:        requestID,
		Mood:             mapped,
		Confidence:       res.Confidence,
		RawEmotion:       res.Emotion,
		AllEmotions:      res.Distribution,
		AIModelsUsed:     len(results),
		ProcessingMethod: ProcessingMethod,
		Decision:         res.Decision,
	}
	p.persist(log, det, results)
	return det, nil
}

// query asks the models in order, skipping failures, and stops early once one
// is confident enough.
func (p *Pipeline) query(ctx context.Context, log logrus.FieldLogger, img []byte) []mood.ModelResult {
	models := p.cfg.HuggingFace.Models
	results := make([]mood.ModelResult, 0, len(models))
	for i, url := range models {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("Request cancelled, not querying further models")
			break
		}
		idx := i + 1
		mlog := log.WithField("model", idx)

		start := p.clock.Now()
		scores, err := p.classifier.Classify(ctx, url, img)
		elapsed := p.clock.Since(start)
		if err != nil {
			outcome := metrics.OutcomeError
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				outcome = metrics.OutcomeSkipped
			}
			p.metrics.ObserveModel(idx, outcome, elapsed)
			mlog.WithError(err).Warn("Model failed")
			continue
		}

		r, ok := modelResult(idx, scores)
		if !ok {
			p.metrics.ObserveModel(idx, metrics.OutcomeError, elapsed)
			mlog.Warn("Model returned no scores")
			continue
		}
		p.metrics.ObserveModel(idx, metrics.OutcomeOK, elapsed)
		mlog.WithFields(logrus.Fields{"emotion": r.Emotion, "confidence": r.Confidence}).Info("Model result")
		results = append(results, r)

		if r.Confidence > p.cfg.HuggingFace.EarlyStop {
			break
		}
	}
	return results
}

func (p *Pipeline) simulated(requestID string) *Detection {
	p.metrics.FallbacksTotal.Inc()
	s := simulate.Generate(p.rand)
	mapped := p.engine.Map(s.Emotion)
	p.metrics.Moods.WithLabelValues(string(mapped)).Inc()
	p.log.WithFields(logrus.Fields{"request_id": requestID, "emotion": s.Emotion, "mood": mapped, "confidence": s.Confidence}).
		Info("Enhanced simulation")
	return &Detection{
		RequestID:        requestID,
		Mood:             mapped,
		Confidence:       s.Confidence,
		RawEmotion:       s.Emotion,
		AllEmotions:      mood.Distribution{{Label: s.Emotion, Score: s.Confidence}},
		ProcessingMethod: simulate.ProcessingMethod,
	}
}
