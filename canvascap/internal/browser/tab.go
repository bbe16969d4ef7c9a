package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page prepared for capture: stealth, fixed device metrics
// and optional resource blocking.
type Tab struct {
	Page    *rod.Page
	PageURL string
	Stealth StealthLevel
	router  *rod.HijackRouter
}

// OpenTab creates a new tab, pins its viewport to the configured window size
// at device scale factor 1 and navigates to pageURL.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	cfg := mgr.cfg

	var page *rod.Page
	var err error
	if cfg.Stealth == LevelHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{Page: page, PageURL: pageURL, Stealth: cfg.Stealth}

	// Screenshots must map 1:1 to CSS pixels.
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.WindowWidth,
		Height:            cfg.WindowHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	if len(cfg.ResourceBlocking) > 0 {
		r, err := applyResourceBlocking(page, cfg.ResourceBlocking)
		if err != nil {
			cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
		t.router = r
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return t, nil
}

// Close stops request interception and closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		t.router.Stop()
		t.router = nil
	}
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
