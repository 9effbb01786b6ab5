package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/models"
)

var (
	ErrUnavailable      = errors.New("geolocation unavailable")
	ErrPermissionDenied = errors.New("geolocation permission denied")
	ErrTimeout          = errors.New("geolocation timed out")

	// ErrNotReported means the browser has not answered yet. It matches
	// ErrUnavailable.
	ErrNotReported = fmt.Errorf("%w: no position reported yet", ErrUnavailable)
)

// Locator resolves the position of whoever is looking at the page.
type Locator interface {
	CurrentPosition(ctx context.Context) (models.Position, error)
}

type Static models.Position

func (s Static) CurrentPosition(ctx context.Context) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, err
	}
	return models.Position(s), nil
}

type Unavailable struct{}

func (Unavailable) CurrentPosition(context.Context) (models.Position, error) {
	return models.Position{}, ErrUnavailable
}

// Reported holds the last answer the browser gave to getCurrentPosition.
type Reported struct {
	mu       sync.RWMutex
	pos      models.Position
	err      error
	reported bool
}

func NewReported() *Reported { return &Reported{} }

func (r *Reported) ReportPosition(pos models.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos, r.err, r.reported = pos, nil, true
}

func (r *Reported) ReportError(err error) {
	if err == nil {
		err = ErrUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos, r.err, r.reported = models.Position{}, err, true
}

func (r *Reported) CurrentPosition(ctx context.Context) (models.Position, error) {
	if err := ctx.Err(); err != nil {
		return models.Position{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.reported {
		return models.Position{}, ErrNotReported
	}
	return r.pos, r.err
}

// ParseBrowserError maps the GeolocationPositionError names the page sends.
func ParseBrowserError(code string) error {
	switch code {
	case "PERMISSION_DENIED", "permission_denied", "denied":
		return ErrPermissionDenied
	case "TIMEOUT", "timeout":
		return ErrTimeout
	default:
		return ErrUnavailable
	}
}
