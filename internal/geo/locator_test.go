package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/models"
)

func TestReportedWithoutReportIsUnavailable(t *testing.T) {
	r := NewReported()
	_, err := r.CurrentPosition(context.Background())
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, ErrNotReported) {
		t.Fatalf("expected ErrNotReported wrapping ErrUnavailable, got %v", err)
	}

	r.ReportError(ErrUnavailable)
	if _, err := r.CurrentPosition(context.Background()); errors.Is(err, ErrNotReported) {
		t.Fatalf("expected a browser report to replace ErrNotReported, got %v", err)
	}
}

func TestReportedReturnsLatestReport(t *testing.T) {
	r := NewReported()
	r.ReportError(ErrPermissionDenied)
	if _, err := r.CurrentPosition(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	r.ReportPosition(models.Position{Lat: 55.75, Lon: 37.62})
	pos, err := r.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pos.Lat != 55.75 || pos.Lon != 37.62 {
		t.Fatalf("unexpected position %+v", pos)
	}

	r.ReportError(nil)
	if _, err := r.CurrentPosition(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected nil report error to map to ErrUnavailable, got %v", err)
	}
}

func TestReportedHonoursCancelledContext(t *testing.T) {
	r := NewReported()
	r.ReportPosition(models.Position{Lat: 1, Lon: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.CurrentPosition(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseBrowserError(t *testing.T) {
	if !errors.Is(ParseBrowserError("PERMISSION_DENIED"), ErrPermissionDenied) {
		t.Fatalf("expected permission denied")
	}
	if !errors.Is(ParseBrowserError("TIMEOUT"), ErrTimeout) {
		t.Fatalf("expected timeout")
	}
	if !errors.Is(ParseBrowserError("POSITION_UNAVAILABLE"), ErrUnavailable) {
		t.Fatalf("expected unavailable")
	}
}

func TestStaticAndUnavailable(t *testing.T) {
	pos, err := Static{Lat: 48.85, Lon: 2.35}.CurrentPosition(context.Background())
	if err != nil || pos.Lat != 48.85 {
		t.Fatalf("unexpected static result %+v %v", pos, err)
	}
	if _, err := (Unavailable{}).CurrentPosition(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
