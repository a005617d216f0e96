package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/rs/zerolog"
)

// Browser drives a single browser session. Selectors are CSS selectors.
// Element lookups return platform.ErrElementNotFound when nothing matches.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor waits up to timeout for selector to appear. It reports false on timeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	// Fill types value into the first element matching selector, emptying it first if clear is set.
	Fill(ctx context.Context, selector, value string, clear bool) error
	// CheckRadio selects the radio named name with value.
	CheckRadio(ctx context.Context, name, value string) error
	// FileInputs returns number of elements matching selector.
	FileInputs(ctx context.Context, selector string) (int, error)
	// Upload attaches file at path to the index-th element matching selector.
	Upload(ctx context.Context, selector string, index int, path string) error
	Click(ctx context.Context, selector string) error
	Cookies(ctx context.Context) ([]models.Cookie, error)
	SetCookies(ctx context.Context, cookies []models.Cookie) error
	Close() error
}

// BrowserFactory launches browsers.
type BrowserFactory interface {
	NewBrowser(ctx context.Context) (Browser, error)
}

// BrowserFactoryFunc adapts a function to BrowserFactory.
type BrowserFactoryFunc func(ctx context.Context) (Browser, error)

// NewBrowser calls f.
func (f BrowserFactoryFunc) NewBrowser(ctx context.Context) (Browser, error) {
	return f(ctx)
}

// openSession launches a browser authenticated as job's tenant, reusing a saved session when it is still valid.
func (p *Publisher) openSession(ctx context.Context, job models.Job, logger *zerolog.Logger) (Browser, error) {
	p.transition(job.ID, logger, StateAuthenticating)

	browser, err := p.deps.Browsers.NewBrowser(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't launch browser: %w", err)
	}

	if p.reuseSession(ctx, job, browser, logger) {
		p.deps.JobLog.Append(job.ID, "reusing saved session")
		return browser, nil
	}

	if err := p.login(ctx, job, browser); err != nil {
		p.closeBrowser(browser, logger)
		return nil, err
	}

	p.deps.JobLog.Append(job.ID, "logged in to e-Vend")
	p.saveSession(ctx, job.ID, browser, logger)

	return browser, nil
}

// reuseSession injects saved cookies and reports whether they still authenticate.
func (p *Publisher) reuseSession(ctx context.Context, job models.Job, browser Browser, logger *zerolog.Logger) bool {
	cookies, ok, err := p.deps.Sessions.TryLoad(ctx, job.ID)
	if err != nil {
		logger.Warn().Err(err).Msg("can't load saved session")
		return false
	}
	if !ok {
		return false
	}

	// cookies can only be set for the domain of the current page.
	if err := browser.Navigate(ctx, p.cfg.Site.LoginURL); err != nil {
		logger.Warn().Err(err).Msg("can't open login page")
		return false
	}
	if err := browser.SetCookies(ctx, cookies); err != nil {
		logger.Warn().Err(err).Msg("can't restore session cookies")
		return false
	}
	if err := browser.Navigate(ctx, p.cfg.Site.LoginURL); err != nil {
		logger.Warn().Err(err).Msg("can't reload login page")
		return false
	}

	live, err := browser.WaitFor(ctx, p.cfg.Site.Selectors.Dashboard, p.cfg.SessionCheckTimeout)
	if err != nil || !live {
		logger.Info().Err(err).Msg("saved session is no longer valid")
		return false
	}

	p.saveSession(ctx, job.ID, browser, logger)

	return true
}

func (p *Publisher) login(ctx context.Context, job models.Job, browser Browser) error {
	sel := p.cfg.Site.Selectors
	creds := job.Config.Credentials

	if err := browser.Navigate(ctx, p.cfg.Site.LoginURL); err != nil {
		return fmt.Errorf("%w: can't open login page: %w", ErrLoginFailed, err)
	}

	ready, err := browser.WaitFor(ctx, sel.LoginEmail, p.cfg.PageTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if !ready {
		return fmt.Errorf("%w: login form didn't load", ErrLoginFailed)
	}

	if err := browser.Fill(ctx, sel.LoginEmail, creds.Email, true); err != nil {
		return fmt.Errorf("%w: can't fill email: %w", ErrLoginFailed, err)
	}
	if err := browser.Fill(ctx, sel.LoginPassword, creds.Password, true); err != nil {
		return fmt.Errorf("%w: can't fill password: %w", ErrLoginFailed, err)
	}
	if err := browser.Click(ctx, sel.LoginSubmit); err != nil {
		return fmt.Errorf("%w: can't submit login form: %w", ErrLoginFailed, err)
	}

	loggedIn, err := browser.WaitFor(ctx, sel.Dashboard, p.cfg.PageTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	if !loggedIn {
		return fmt.Errorf("%w: dashboard didn't show", ErrLoginFailed)
	}

	return nil
}

func (p *Publisher) saveSession(ctx context.Context, tenantID string, browser Browser, logger *zerolog.Logger) {
	cookies, err := browser.Cookies(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("can't read session cookies")
		return
	}

	if err := p.deps.Sessions.Save(ctx, tenantID, cookies); err != nil {
		logger.Warn().Err(err).Msg("can't save session")
	}
}

func (p *Publisher) closeBrowser(browser Browser, logger *zerolog.Logger) {
	if browser == nil {
		return
	}

	if err := browser.Close(); err != nil {
		logger.Warn().Err(err).Msg("can't close browser")
	}
}

// publishRow fills and submits the listing form once. submitted reports whether the form reached the site.
func (p *Publisher) publishRow(
	ctx context.Context,
	job models.Job,
	browser Browser,
	form Form,
) (outcome Outcome, submitted bool, err error) {
	sel := p.cfg.Site.Selectors

	if err := browser.Navigate(ctx, p.cfg.Site.NewListingURL); err != nil {
		return OutcomeFailed, false, fmt.Errorf("can't open listing form: %w", err)
	}

	ready, err := browser.WaitFor(ctx, sel.FormReady, p.cfg.PageTimeout)
	if err != nil {
		return OutcomeFailed, false, fmt.Errorf("can't open listing form: %w", err)
	}
	if !ready {
		return OutcomeFailed, false, ErrFormNotReady
	}

	for _, field := range form.Fields {
		err := browser.Fill(ctx, sel.Field(field.ID), field.Value, field.Clear)
		if errors.Is(err, platform.ErrElementNotFound) {
			p.deps.JobLog.Append(job.ID, fmt.Sprintf("field %s not found, skipping it", field.ID))
			continue
		}
		if err != nil {
			return OutcomeFailed, false, fmt.Errorf("can't fill field %s: %w", field.ID, err)
		}
	}

	if err := browser.CheckRadio(ctx, sel.ShippingRadio, form.ShippingType); err != nil {
		p.deps.JobLog.Append(job.ID, fmt.Sprintf("can't select shipping method %s: %v", form.ShippingType, err))
	}

	if form.PickupLocation != "" {
		if err := browser.Fill(ctx, sel.PickupLocation, form.PickupLocation, true); err != nil {
			p.deps.JobLog.Append(job.ID, fmt.Sprintf("can't fill pickup location: %v", err))
		}
	}

	cleanup := p.attachImages(ctx, job.ID, browser, form.ImageURLs)
	defer cleanup()

	if err := browser.Click(ctx, sel.Submit); err != nil {
		return OutcomeFailed, false, fmt.Errorf("can't submit listing: %w", err)
	}

	confirmed, err := browser.WaitFor(ctx, sel.Success, p.cfg.SubmitTimeout)
	if err != nil {
		return OutcomeFailed, true, fmt.Errorf("can't confirm listing: %w", err)
	}
	if !confirmed {
		return OutcomeUnconfirmed, true, nil
	}

	return OutcomePublished, true, nil
}
