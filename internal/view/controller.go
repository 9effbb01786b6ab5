package view

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pr-poehali-dev/weather-viewer-project/internal/geo"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/mockdata"
	"github.com/pr-poehali-dev/weather-viewer-project/internal/models"
)

const (
	DefaultInitDelay     = 1000 * time.Millisecond
	DefaultSearchDelay   = 800 * time.Millisecond
	DefaultLocateTimeout = 10 * time.Second
)

// Options configures a Controller. Zero durations fall back to the defaults.
type Options struct {
	InitDelay     time.Duration
	SearchDelay   time.Duration
	LocateTimeout time.Duration
	Temperatures  mockdata.TemperatureSource
	Now           func() time.Time
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.InitDelay <= 0 {
		o.InitDelay = DefaultInitDelay
	}
	if o.SearchDelay <= 0 {
		o.SearchDelay = DefaultSearchDelay
	}
	if o.LocateTimeout <= 0 {
		o.LocateTimeout = DefaultLocateTimeout
	}
	if o.Temperatures == nil {
		o.Temperatures = mockdata.DefaultSource
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// task is one delayed state update. Only the most recently scheduled task
// may apply its result; older ones are cancelled and dropped.
type task struct {
	id     uuid.UUID
	kind   string
	ctx    context.Context
	cancel context.CancelFunc
}

// Controller owns the state of one weather page. All methods are safe for
// concurrent use.
type Controller struct {
	locator geo.Locator
	opts    Options
	log     *slog.Logger

	mu         sync.Mutex
	loading    bool
	searchText string
	current    *models.WeatherSnapshot
	forecast   []models.ForecastEntry
	favorites  Favorites
	pending    *task
	version    uint64
	updatedAt  time.Time
	closed     bool
	subs       map[chan models.View]struct{}
}

func NewController(locator geo.Locator, opts Options) *Controller {
	if locator == nil {
		locator = geo.Unavailable{}
	}
	opts = opts.withDefaults()
	return &Controller{
		locator:   locator,
		opts:      opts,
		log:       opts.Logger,
		loading:   true,
		updatedAt: opts.Now(),
		subs:      map[chan models.View]struct{}{},
	}
}

// Initialize asks the locator for a position and, whatever the answer,
// shows the default weather after the init delay.
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.loading = true
	t := c.scheduleLocked(ctx, "locate")
	c.changedLocked()
	go c.runLocate(t)
}

// RequestMyLocation repeats the initial location flow.
func (c *Controller) RequestMyLocation(ctx context.Context) {
	c.Initialize(ctx)
}

// Search shows weather for city after the search delay. Blank input is
// ignored and reported as false.
func (c *Controller) Search(city string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchLocked(city)
}

// SubmitSearch searches for whatever is currently typed in the search field.
func (c *Controller) SubmitSearch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchLocked(c.searchText)
}

// SelectFavorite puts city in the search field and searches for it.
func (c *Controller) SelectFavorite(city string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.searchText = city
	if !c.searchLocked(city) {
		c.changedLocked()
		return false
	}
	return true
}

func (c *Controller) SetSearchText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.searchText == text {
		return
	}
	c.searchText = text
	c.changedLocked()
}

// AddFavorite bookmarks city. It returns false for blank names and for
// cities already in the list.
func (c *Controller) AddFavorite(city string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || strings.TrimSpace(city) == "" {
		return false
	}
	if !c.favorites.Add(city) {
		return false
	}
	c.changedLocked()
	return true
}

func (c *Controller) View() models.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Subscribe streams a fresh View after every state change. When the
// consumer falls behind the oldest buffered view is discarded.
func (c *Controller) Subscribe() (<-chan models.View, func()) {
	ch := make(chan models.View, 8)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close cancels pending work and ends every subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.pending != nil {
		c.pending.cancel()
		c.pending = nil
	}
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
}

func (c *Controller) searchLocked(city string) bool {
	if c.closed || strings.TrimSpace(city) == "" {
		return false
	}
	c.loading = true
	t := c.scheduleLocked(context.Background(), "search")
	c.changedLocked()
	go c.runSearch(t, city)
	return true
}

func (c *Controller) scheduleLocked(parent context.Context, kind string) *task {
	if c.pending != nil {
		c.log.Debug("superseding pending request", "request", c.pending.id, "kind", c.pending.kind, "by", kind)
		c.pending.cancel()
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	t := &task{id: uuid.New(), kind: kind, ctx: ctx, cancel: cancel}
	c.pending = t
	return t
}

func (c *Controller) runLocate(t *task) {
	lctx, cancel := context.WithTimeout(t.ctx, c.opts.LocateTimeout)
	pos, err := c.locator.CurrentPosition(lctx)
	cancel()
	if t.ctx.Err() != nil {
		return
	}
	switch {
	case errors.Is(err, geo.ErrNotReported):
		c.log.Debug("no position reported yet, using default data", "request", t.id)
	case err != nil:
		c.log.Warn("geolocation unavailable, using default data", "request", t.id, "error", err)
	default:
		c.log.Debug("geolocation resolved", "request", t.id, "lat", pos.Lat, "lon", pos.Lon)
	}

	if !wait(t.ctx, c.opts.InitDelay) {
		return
	}
	c.complete(t, func() {
		w := mockdata.Current()
		c.current = &w
		c.forecast = mockdata.Forecast()
	})
}

func (c *Controller) runSearch(t *task, city string) {
	if !wait(t.ctx, c.opts.SearchDelay) {
		return
	}
	c.complete(t, func() {
		w := mockdata.ForCity(city, c.opts.Temperatures)
		c.current = &w
		// A search may have superseded the initial load.
		if len(c.forecast) == 0 {
			c.forecast = mockdata.Forecast()
		}
		c.searchText = ""
	})
}

func (c *Controller) complete(t *task, apply func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.pending != t {
		c.log.Debug("dropping stale result", "request", t.id, "kind", t.kind)
		return
	}
	apply()
	c.pending = nil
	t.cancel()
	c.loading = false
	c.changedLocked()
}

func (c *Controller) changedLocked() {
	c.version++
	c.updatedAt = c.opts.Now()
	v := c.viewLocked()
	for ch := range c.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

func (c *Controller) viewLocked() models.View {
	v := models.View{
		Phase:      models.PhaseLoaded,
		IsLoading:  c.loading,
		SearchText: c.searchText,
		Forecast:   make([]models.ForecastEntry, len(c.forecast)),
		Favorites:  c.favorites.List(),
		Theme:      models.ThemeAt(c.opts.Now()),
		Version:    c.version,
		UpdatedAt:  c.updatedAt,
	}
	if c.loading {
		v.Phase = models.PhaseLoading
	}
	copy(v.Forecast, c.forecast)
	if c.current != nil {
		w := *c.current
		v.Current = &w
	}
	return v
}

func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
