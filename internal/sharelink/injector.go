package sharelink

import (
	"context"
	"log/slog"
	"time"

	"github.com/scoreunlock/scoreunlock/internal/crowdmark"
)

const (
	// MarkerID tags the inserted anchor so it is only added once.
	MarkerID = "crowdmark-userscript-scorelink-id-hehe"
	// HeaderClass is the assignment header container the anchor goes into.
	HeaderClass = "cm-assignment__header-top-content"
	// DefaultPeriod is how often the page is checked.
	DefaultPeriod = time.Second
)

// Injector inserts a share link into assignment pages.
type Injector struct {
	cache   *Cache
	baseURL string
	label   string
}

// NewInjector creates an injector. label is the anchor text.
func NewInjector(cache *Cache, baseURL, label string) *Injector {
	if label == "" {
		label = "Shareable link"
	}
	return &Injector{cache: cache, baseURL: baseURL, label: label}
}

// AnchorFor returns the anchor for an exam-master id.
func (i *Injector) AnchorFor(examMasterID string) (Anchor, bool) {
	uuid, ok := i.cache.Lookup(examMasterID)
	if !ok {
		return Anchor{}, false
	}
	return Anchor{
		ID:     MarkerID,
		Href:   crowdmark.ScoreLink(i.baseURL, uuid),
		Text:   i.label,
		Target: "_blank",
	}, true
}

// InstallOnce adds the anchor to page unless it is already present, the
// exam is unknown, or the header container is missing. It reports whether
// an anchor was added.
func (i *Injector) InstallOnce(page Page) (bool, error) {
	if page.HasElement(MarkerID) {
		return false, nil
	}
	a, ok := i.AnchorFor(ExamMasterIDFromPath(page.Path()))
	if !ok {
		return false, nil
	}
	return page.AppendAnchor(HeaderClass, a)
}

// Run checks page every period until ctx is done.
func (i *Injector) Run(ctx context.Context, page Page, period time.Duration) error {
	if period <= 0 {
		period = DefaultPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			added, err := i.InstallOnce(page)
			if err != nil {
				slog.Warn("install share link", "path", page.Path(), "error", err)
				continue
			}
			if added {
				slog.Info("share link installed", "path", page.Path())
			}
		}
	}
}
