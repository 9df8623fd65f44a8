package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/icholy/digest"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/internal/points"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 4096
)

var (
	ErrStatus    = errors.New("unexpected HTTP status")
	ErrMalformed = errors.New("malformed register response")
)

type Config struct {
	// Host is the device address, optionally with a port.
	Host     string
	Username string
	Password string
	Timeout  time.Duration
}

// HTTP talks to the thermostat's OID pages with digest authentication.
type HTTP struct {
	base   string
	client *http.Client
}

func NewHTTP(cfg Config) *HTTP {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	base := cfg.Host
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &HTTP{
		base: strings.TrimSuffix(base, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &digest.Transport{
				Username: cfg.Username,
				Password: cfg.Password,
			},
		},
	}
}

// ReadRegister issues GET /get?OID<address>. The device answers
// "OID<address>=<value>".
func (h *HTTP) ReadRegister(ctx context.Context, address string) (points.RegisterValue, error) {
	u := fmt.Sprintf("%s/get?OID%s", h.base, address)

	body, err := h.get(ctx, u)
	if err != nil {
		return 0, err
	}

	raw, err := parseValue(body)
	if err != nil {
		return 0, fmt.Errorf("OID%s: %w", address, err)
	}

	log.Debug().Str("address", address).Float64("raw", float64(raw)).Msg("Read register")
	return raw, nil
}

// WriteRegister issues GET /pdp/?OID<address>=<value>&submit=Submit.
func (h *HTTP) WriteRegister(ctx context.Context, address string, value points.RegisterValue) error {
	q := url.Values{}
	q.Set("OID"+address, strconv.FormatFloat(float64(value), 'f', -1, 64))
	q.Set("submit", "Submit")
	u := h.base + "/pdp/?" + q.Encode()

	if _, err := h.get(ctx, u); err != nil {
		return err
	}

	log.Debug().Str("address", address).Float64("raw", float64(value)).Msg("Wrote register")
	return nil
}

func (h *HTTP) get(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

func parseValue(body string) (points.RegisterValue, error) {
	parts := strings.Split(body, "=")
	val := strings.TrimSpace(parts[len(parts)-1])
	if val == "" {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, body)
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, body)
	}
	return points.RegisterValue(f), nil
}
