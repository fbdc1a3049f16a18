package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/cenkalti/backoff/v5"
)

var (
	ErrProcessingFailed  = errors.New("remote processing failed")
	ErrProcessingTimeout = errors.New("remote processing timed out")
)

var errStillProcessing = errors.New("still processing")

// BridgeConfig bounds the wait for remote processing.
type BridgeConfig struct {
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	Timeout         time.Duration
}

// Bridge uploads staged media and waits until the remote side can use it.
type Bridge struct {
	files FileService
	cfg   BridgeConfig
}

// NewBridge returns a Bridge; zero config fields take 1s / 5s / 10m.
func NewBridge(files FileService, cfg BridgeConfig) *Bridge {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = max(5*time.Second, cfg.PollInterval)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Bridge{files: files, cfg: cfg}
}

// Process uploads path and polls until the file leaves PROCESSING.
// On failure after a successful upload the remote file is released.
func (b *Bridge) Process(ctx context.Context, path, mimeType string) (*Handle, error) {
	engine.IncrUploads()
	h, err := b.files.Upload(ctx, path, mimeType)
	if err != nil {
		return nil, err
	}
	slog.Debug("bridge: uploaded", slog.String("name", h.Name), slog.String("state", h.State.String()))

	ready, err := b.await(ctx, h)
	if err != nil {
		b.Release(context.WithoutCancel(ctx), h)
		return nil, err
	}
	return ready, nil
}

func (b *Bridge) await(ctx context.Context, h *Handle) (*Handle, error) {
	switch h.State {
	case StateActive:
		return h, nil
	case StateFailed:
		return nil, fmt.Errorf("%w: %s", ErrProcessingFailed, h.Name)
	}

	name := h.Name
	poll := func() (*Handle, error) {
		engine.IncrProcessingPolls()
		cur, err := b.files.Get(ctx, name)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		switch cur.State {
		case StateProcessing:
			return nil, errStillProcessing
		case StateFailed:
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrProcessingFailed, name))
		default:
			return cur, nil
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.cfg.PollInterval
	bo.MaxInterval = b.cfg.MaxPollInterval
	bo.RandomizationFactor = 0

	start := time.Now()
	ready, err := backoff.Retry(ctx, poll, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(b.cfg.Timeout))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, errStillProcessing) {
			return nil, fmt.Errorf("%w after %s", ErrProcessingTimeout, b.cfg.Timeout)
		}
		return nil, err
	}
	slog.Debug("bridge: ready", slog.String("name", name), slog.Duration("waited", time.Since(start)))
	return ready, nil
}

// Release deletes the remote file; failures are logged only.
func (b *Bridge) Release(ctx context.Context, h *Handle) {
	if h == nil || h.Name == "" {
		return
	}
	if err := b.files.Delete(ctx, h.Name); err != nil {
		slog.Warn("bridge: release failed", slog.String("name", h.Name), slog.Any("error", err))
	}
}
