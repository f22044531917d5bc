package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maxicoach/backend/internal/metrics"
	"github.com/maxicoach/backend/pkg/logger"
	"github.com/maxicoach/backend/pkg/utils"
)

var (
	ErrNothingToSay = errors.New("no speakable text")
	ErrStopped      = errors.New("playback stopped")
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

type AudioCache interface {
	GetAudio(ctx context.Context, key string) ([]byte, bool, error)
	SetAudio(ctx context.Context, key string, pcm []byte, ttl time.Duration) error
}

// Voices maps UI themes to prebuilt voice names.
type Voices struct {
	byTheme  map[string]string
	fallback string
}

func NewVoices(byTheme map[string]string, fallback string) Voices {
	m := make(map[string]string, len(byTheme))
	for k, v := range byTheme {
		m[strings.ToLower(k)] = v
	}
	if fallback == "" {
		fallback = "Zephyr"
	}
	return Voices{byTheme: m, fallback: fallback}
}

func (v Voices) For(theme string) string {
	if name, ok := v.byTheme[strings.ToLower(theme)]; ok && name != "" {
		return name
	}
	return v.fallback
}

type Audio struct {
	PCM        []byte
	SampleRate int
	Voice      string
	Cached     bool
}

type playback struct {
	cancel context.CancelCauseFunc
	seq    uint64
}

// Player runs at most one synthesis per session. Starting a new one cancels
// whatever the session had in flight.
type Player struct {
	synth      Synthesizer
	cache      AudioCache
	cacheTTL   time.Duration
	voices     Voices
	sampleRate int

	mu     sync.Mutex
	seq    uint64
	active map[string]playback
}

// NewPlayer builds a player. cache may be nil.
func NewPlayer(synth Synthesizer, cache AudioCache, cacheTTL time.Duration, voices Voices, sampleRate int) *Player {
	return &Player{
		synth:      synth,
		cache:      cache,
		cacheTTL:   cacheTTL,
		voices:     voices,
		sampleRate: sampleRate,
		active:     make(map[string]playback),
	}
}

func (p *Player) Play(ctx context.Context, sessionID, text, theme string) (*Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNothingToSay
	}
	voice := p.voices.For(theme)

	ctx, seq := p.begin(ctx, sessionID)
	defer p.finish(sessionID, seq)

	key := utils.HashKey(voice, text)
	if pcm, ok := p.cached(ctx, key); ok {
		return &Audio{PCM: pcm, SampleRate: p.sampleRate, Voice: voice, Cached: true}, nil
	}

	start := time.Now()
	pcm, err := p.synth.Synthesize(ctx, text, voice)
	metrics.SpeechDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrStopped) {
			metrics.SpeechRequests.WithLabelValues("stopped").Inc()
			return nil, ErrStopped
		}
		metrics.SpeechRequests.WithLabelValues("error").Inc()
		logger.Warn("Speech synthesis failed",
			zap.String("session_id", sessionID),
			zap.String("voice", voice),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.SpeechRequests.WithLabelValues("ok").Inc()

	if p.cache != nil {
		if err := p.cache.SetAudio(context.WithoutCancel(ctx), key, pcm, p.cacheTTL); err != nil {
			logger.Warn("Failed to cache audio", zap.Error(err))
		}
	}

	return &Audio{PCM: pcm, SampleRate: p.sampleRate, Voice: voice}, nil
}

func (p *Player) cached(ctx context.Context, key string) ([]byte, bool) {
	if p.cache == nil {
		return nil, false
	}
	pcm, hit, err := p.cache.GetAudio(ctx, key)
	if err != nil {
		logger.Warn("Audio cache lookup failed", zap.Error(err))
		return nil, false
	}
	if !hit {
		metrics.CacheMisses.WithLabelValues("audio").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("audio").Inc()
	return pcm, true
}

// Stop cancels the session's synthesis, if any.
func (p *Player) Stop(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pb, ok := p.active[sessionID]; ok {
		pb.cancel(ErrStopped)
		delete(p.active, sessionID)
		logger.Debug("Speech stopped", zap.String("session_id", sessionID))
	}
}

func (p *Player) Active(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[sessionID]
	return ok
}

func (p *Player) begin(parent context.Context, sessionID string) (context.Context, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.active[sessionID]; ok {
		prev.cancel(ErrStopped)
	}
	ctx, cancel := context.WithCancelCause(parent)
	p.seq++
	p.active[sessionID] = playback{cancel: cancel, seq: p.seq}
	return ctx, p.seq
}

func (p *Player) finish(sessionID string, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pb, ok := p.active[sessionID]; ok && pb.seq == seq {
		pb.cancel(nil)
		delete(p.active, sessionID)
	}
}
