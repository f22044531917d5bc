package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/maxicoach/backend/internal/metrics"
	"github.com/maxicoach/backend/pkg/circuitbreaker"
	"github.com/maxicoach/backend/pkg/logger"
	"github.com/maxicoach/backend/pkg/retry"
)

var ErrNoAudio = errors.New("speech response contained no audio")

// GeminiSynthesizer calls the Gemini text-to-speech model. It returns raw
// 16-bit little-endian PCM, mono, at the model's sample rate.
type GeminiSynthesizer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
}

func NewGeminiSynthesizer(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiSynthesizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.Logger = logger.GetLogger()

	breaker := circuitbreaker.New("gemini-tts", circuitbreaker.Config{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		Logger:           logger.GetLogger(),
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.CircuitState.WithLabelValues(name).Set(float64(to))
		},
	})

	logger.Info("Gemini speech synthesizer initialized", zap.String("model", model))

	return &GeminiSynthesizer{
		client:  client,
		model:   model,
		timeout: timeout,
		breaker: breaker,
		retry:   retryCfg,
	}, nil
}

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return circuitbreaker.Run(ctx, g.breaker, func(ctx context.Context) ([]byte, error) {
		return retry.DoWithResult(ctx, g.retry, func(ctx context.Context) ([]byte, error) {
			pcm, err := g.generate(ctx, text, voice)
			if err != nil && !isTransient(err) {
				return nil, retry.Permanent(err)
			}
			return pcm, err
		})
	})
}

func (g *GeminiSynthesizer) generate(ctx context.Context, text, voice string) ([]byte, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoAudio
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, ErrNoAudio
}

// isTransient reports whether another attempt could succeed: rate limits,
// server errors and timeouts of a single attempt.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNoAudio) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return retryableStatus(apiErrPtr.Code)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}
