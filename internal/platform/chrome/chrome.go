// Package chrome drives headless Chrome through the DevTools protocol.
package chrome

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Options configure launched browsers.
type Options struct {
	Headless  bool
	ExecPath  string
	UserAgent string
}

// Factory launches a new Chrome process per browser.
type Factory struct {
	opts   Options
	logger *zerolog.Logger
}

// NewFactory returns new Factory.
func NewFactory(opts Options, logger *zerolog.Logger) *Factory {
	return &Factory{opts: opts, logger: logger}
}

// NewBrowser launches Chrome with a single tab. The browser lives until Close, independently of ctx.
func (f *Factory) NewBrowser(ctx context.Context) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if f.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(f.opts.ExecPath))
	}
	if f.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(f.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...interface{}) {
		f.logger.Debug().Msgf(format, args...)
	}))

	b := &Browser{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}

	// the first run on tabCtx allocates the browser, its process lives as long as tabCtx.
	stop := context.AfterFunc(ctx, b.cancel)
	err := chromedp.Run(tabCtx, network.Enable())
	if !stop() {
		b.cancel()
		return nil, fmt.Errorf("can't start chrome: %w", ctx.Err())
	}
	if err != nil {
		b.cancel()
		return nil, fmt.Errorf("can't start chrome: %w", err)
	}

	return b, nil
}

// Browser is a single Chrome tab. Actions run on contexts derived from the tab context,
// bounded by the caller's ctx.
type Browser struct {
	ctx    context.Context
	cancel func()
}

// Navigate opens url and waits for the page to load.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx, chromedp.Navigate(url))
}

// WaitFor waits up to timeout for selector to be ready. It reports false on timeout.
func (b *Browser) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := b.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return true, nil
	}
	if waitCtx.Err() != nil && ctx.Err() == nil {
		return false, nil
	}

	return false, err
}

// Fill types value into the first element matching selector.
func (b *Browser) Fill(ctx context.Context, selector, value string, clear bool) error {
	node, err := b.first(ctx, selector)
	if err != nil {
		return err
	}

	ids := []cdp.NodeID{node.NodeID}
	actions := []chromedp.Action{chromedp.Focus(ids, chromedp.ByNodeID)}
	if clear {
		actions = append(actions, chromedp.Clear(ids, chromedp.ByNodeID))
	}
	actions = append(actions, chromedp.SendKeys(ids, value, chromedp.ByNodeID))

	return b.run(ctx, actions...)
}

// CheckRadio clicks the radio named name with value.
func (b *Browser) CheckRadio(ctx context.Context, name, value string) error {
	return b.Click(ctx, radioSelector(name, value))
}

// FileInputs returns number of elements matching selector.
func (b *Browser) FileInputs(ctx context.Context, selector string) (int, error) {
	nodes, err := b.nodes(ctx, selector)
	if err != nil {
		return 0, err
	}

	return len(nodes), nil
}

// Upload attaches file at path to the index-th element matching selector.
func (b *Browser) Upload(ctx context.Context, selector string, index int, path string) error {
	nodes, err := b.nodes(ctx, selector)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(nodes) {
		return fmt.Errorf("%w: %s #%d", platform.ErrElementNotFound, selector, index)
	}

	return b.run(ctx, chromedp.SetUploadFiles([]cdp.NodeID{nodes[index].NodeID}, []string{path}, chromedp.ByNodeID))
}

// Click clicks the first element matching selector.
func (b *Browser) Click(ctx context.Context, selector string) error {
	node, err := b.first(ctx, selector)
	if err != nil {
		return err
	}

	return b.run(ctx, chromedp.Click([]cdp.NodeID{node.NodeID}, chromedp.ByNodeID))
}

// Cookies returns cookies of the current page.
func (b *Browser) Cookies(ctx context.Context) ([]models.Cookie, error) {
	var cookies []*network.Cookie
	err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("can't read cookies: %w", err)
	}

	result := make([]models.Cookie, 0, len(cookies))
	for _, c := range cookies {
		result = append(result, fromNetworkCookie(c))
	}

	return result, nil
}

// SetCookies adds cookies to the browser. Expired cookies are skipped.
func (b *Browser) SetCookies(ctx context.Context, cookies []models.Cookie) error {
	params := toCookieParams(cookies, time.Now())

	return b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range params {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithExpires(c.Expires).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("can't set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

// Close closes the tab and stops the browser process.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()

	return err
}

// run runs actions in the tab, stopping when ctx is done.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (b *Browser) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := b.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("can't query %s: %w", selector, err)
	}

	return nodes, nil
}

func (b *Browser) first(ctx context.Context, selector string) (*cdp.Node, error) {
	nodes, err := b.nodes(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", platform.ErrElementNotFound, selector)
	}

	return nodes[0], nil
}

func radioSelector(name, value string) string {
	return fmt.Sprintf(`input[type="radio"][name="%s"][value="%s"]`, cssEscape(name), cssEscape(value))
}

func cssEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func fromNetworkCookie(c *network.Cookie) models.Cookie {
	expires := c.Expires
	if c.Session {
		expires = -1
	}

	return models.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  expires,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}
}

func toCookieParams(cookies []models.Cookie, now time.Time) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		var expires *cdp.TimeSinceEpoch
		if c.Expires > 0 {
			expiresAt := time.Unix(int64(c.Expires), 0)
			if !expiresAt.After(now) {
				continue
			}
			timestamp := cdp.TimeSinceEpoch(expiresAt)
			expires = &timestamp
		}

		path := c.Path
		if path == "" {
			path = "/"
		}

		params = append(params, &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			Expires:  expires,
		})
	}

	return params
}
