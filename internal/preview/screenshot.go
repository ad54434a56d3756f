package preview

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultScreenshotBaseURL = "https://api.screenshotone.com/take"
	defaultScreenshotTimeout = 30 * time.Second
	maxScreenshotBytes       = 10 << 20 // 10MB
)

// ScreenshotOptions mirror the capture parameters of the screenshot API.
type ScreenshotOptions struct {
	ViewportWidth      int
	ViewportHeight     int
	DeviceScaleFactor  int
	Format             string
	FullPage           bool
	BlockAds           bool
	BlockCookieBanners bool
	BlockChats         bool
}

// DefaultScreenshotOptions returns the capture settings used for site cards.
func DefaultScreenshotOptions() ScreenshotOptions {
	return ScreenshotOptions{
		ViewportWidth:      1200,
		ViewportHeight:     800,
		DeviceScaleFactor:  1,
		Format:             "png",
		FullPage:           false,
		BlockAds:           true,
		BlockCookieBanners: true,
		BlockChats:         true,
	}
}

// ScreenshotClient calls a ScreenshotOne-style capture API. Requests are
// signed with HMAC-SHA256 over the query string when a secret key is
// configured.
type ScreenshotClient struct {
	baseURL    string
	accessKey  string
	secretKey  string
	options    ScreenshotOptions
	httpClient *http.Client
}

// NewScreenshotClient creates a client for the capture API.
func NewScreenshotClient(baseURL, accessKey, secretKey string, options ScreenshotOptions) *ScreenshotClient {
	if baseURL == "" {
		baseURL = defaultScreenshotBaseURL
	}
	return &ScreenshotClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accessKey:  accessKey,
		secretKey:  secretKey,
		options:    options,
		httpClient: &http.Client{Timeout: defaultScreenshotTimeout},
	}
}

// CaptureURL returns the fully signed request URL for capturing target,
// without performing the request.
func (c *ScreenshotClient) CaptureURL(target string) string {
	params := url.Values{}
	params.Set("url", target)
	params.Set("access_key", c.accessKey)

	o := c.options
	if o.ViewportWidth > 0 {
		params.Set("viewport_width", strconv.Itoa(o.ViewportWidth))
	}
	if o.ViewportHeight > 0 {
		params.Set("viewport_height", strconv.Itoa(o.ViewportHeight))
	}
	if o.DeviceScaleFactor > 0 {
		params.Set("device_scale_factor", strconv.Itoa(o.DeviceScaleFactor))
	}
	if o.Format != "" {
		params.Set("format", o.Format)
	}
	if o.FullPage {
		params.Set("full_page", "true")
	}
	if o.BlockAds {
		params.Set("block_ads", "true")
	}
	if o.BlockCookieBanners {
		params.Set("block_cookie_banners", "true")
	}
	if o.BlockChats {
		params.Set("block_chats", "true")
	}

	query := params.Encode()
	if c.secretKey != "" {
		mac := hmac.New(sha256.New, []byte(c.secretKey))
		mac.Write([]byte(query))
		query += "&signature=" + hex.EncodeToString(mac.Sum(nil))
	}

	return c.baseURL + "?" + query
}

// Capture takes a screenshot of target and returns the image as a data URI
// suitable for storing as an opaque cache artifact.
func (c *ScreenshotClient) Capture(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.CaptureURL(target), nil)
	if err != nil {
		return "", fmt.Errorf("creating capture request: %w", err)
	}
	req.Header.Set("User-Agent", "MuahibShowcase/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("capture request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("screenshot API returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	img, err := io.ReadAll(io.LimitReader(resp.Body, maxScreenshotBytes))
	if err != nil {
		return "", fmt.Errorf("reading screenshot: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(img), nil
}
