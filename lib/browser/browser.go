package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"farmaprice-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/mazen160/go-random"
)

var installTimeout = time.Minute * 5

// EnsureRuntimeReady makes sure a chromium binary is available under
// rootDir, downloading one when absent. The download is idempotent and
// bounded, a failure here is fatal for the whole batch since nothing
// can be scraped without the browser.
func EnsureRuntimeReady(ctx context.Context, rootDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	b := launcher.NewBrowser()
	b.Context = ctx
	if rootDir != "" {
		b.RootDir = rootDir
	}

	bin, err := b.Get()
	if err != nil {
		return "", fmt.Errorf("browser runtime provisioning failed: %w", err)
	}
	return bin, nil
}

type Options struct {
	// directory the chromium binary is downloaded into
	BrowserDir string `json:"browser_dir"`
	// persistent profile directory, a unique suffix is appended so
	// concurrent batches never fight over a profile lock
	ProfileDir     string `json:"profile_dir"`
	Headed         bool   `json:"headed"`
	ViewportWidth  int    `json:"viewport_width"`
	ViewportHeight int    `json:"viewport_height"`
	Locale         string `json:"locale"`
	TimezoneId     string `json:"timezone_id"`
	NoSandbox      bool   `json:"no_sandbox"`
	UserAgent      string `json:"user_agent"`
}

func (o Options) withDefaults() Options {
	if o.ProfileDir == "" {
		o.ProfileDir = "/tmp/farmaprice_profile"
	}
	if o.ViewportWidth == 0 {
		o.ViewportWidth = 1280
	}
	if o.ViewportHeight == 0 {
		o.ViewportHeight = 800
	}
	if o.Locale == "" {
		o.Locale = "es-MX"
	}
	if o.TimezoneId == "" {
		o.TimezoneId = "America/Mexico_City"
	}
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	return o
}

// Session owns one persistent browser context for the lifetime of a
// batch run. Requests against the storefront API go through an
// attached resty client that carries the cookies the browser picked up
// when it visited the storefront, which is what keeps the anti-bot
// layer satisfied.
type Session struct {
	browser *rod.Browser
	launch  *launcher.Launcher
	http    *resty.Client
	opts    Options
}

// Open provisions the browser runtime if needed, launches a persistent
// context and navigates to baseUrl once to establish session state.
func Open(ctx context.Context, baseUrl string, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	bin, err := EnsureRuntimeReady(ctx, opts.BrowserDir)
	if err != nil {
		return nil, err
	}

	suffix, err := random.String(8)
	if err != nil {
		return nil, err
	}
	profileDir := fmt.Sprintf("%s_%s", opts.ProfileDir, strings.ToLower(suffix))

	launch := launcher.New().
		Bin(bin).
		Headless(!opts.Headed).
		UserDataDir(profileDir).
		NoSandbox(opts.NoSandbox).
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("disable-gpu").
		Set("lang", opts.Locale)

	controlUrl, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().Context(ctx).ControlURL(controlUrl)
	err = b.Connect()
	if err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &Session{
		browser: b,
		launch:  launch,
		opts:    opts,
	}
	err = s.establish(ctx, baseUrl)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) establish(ctx context.Context, baseUrl string) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.opts.ViewportWidth,
		Height:            s.opts.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return err
	}
	err = proto.EmulationSetTimezoneOverride{TimezoneID: s.opts.TimezoneId}.Call(page)
	if err != nil {
		return err
	}

	err = page.Navigate(baseUrl)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", baseUrl, err)
	}
	err = page.WaitLoad()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", baseUrl, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	err = s.exportCookies(jar)
	if err != nil {
		return err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", s.opts.UserAgent)
	telemetry.InstrumentResty(client, "browser/http")

	s.http = client
	return nil
}

// exportCookies copies the cookies the browser accumulated into a jar
// usable by the resty client, grouped by cookie domain.
func (s *Session) exportCookies(jar http.CookieJar) error {
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return err
	}

	byHost := map[string][]*http.Cookie{}
	for _, c := range cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		byHost[host] = append(byHost[host], &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Path:   c.Path,
			Domain: c.Domain,
		})
	}
	for host, hostCookies := range byHost {
		u, err := url.Parse("https://" + host)
		if err != nil {
			continue
		}
		jar.SetCookies(u, hostCookies)
	}
	return nil
}

// HTTPClient returns the resty client bound to this browser session's
// cookie state. It is only valid until Close is called.
func (s *Session) HTTPClient() *resty.Client {
	return s.http
}

func (s *Session) Close() {
	err := s.browser.Close()
	if err != nil {
		slog.Warn("failed to close browser gracefully", "err", err)
	}
	s.launch.Cleanup()
}
