// Package wakeclient calls the wake authority over HTTP.
package wakeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fgeck/wolproxy/internal/models"
	"github.com/fgeck/wolproxy/internal/services/credstore"
	"github.com/fgeck/wolproxy/internal/services/trace"
	"github.com/rs/zerolog"
)

// correlationHeader matches the header the authority echoes back.
const correlationHeader = "X-Request-ID"

// Service defines the interface for submitting wake requests. A
// returned *WakeResult carries the authority's definitive verdict;
// an error means the call itself failed (timeout, transport fault)
// and no verdict was obtained. The credential stays a byte slice so
// the caller can wipe it after the call.
type Service interface {
	Submit(ctx context.Context, identifier string, credential []byte) (*models.WakeResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the wake client Service interface.
type Impl struct {
	httpClient HTTPClient
	baseURL    string
	timeout    time.Duration
	tracer     *trace.Tracer
	logger     zerolog.Logger
}

// New creates a new wake client bounded by timeout per submission.
func New(logger zerolog.Logger, baseURL string, timeout time.Duration) *Impl {
	return &Impl{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		timeout:    timeout,
		tracer:     trace.New(logger),
		logger:     logger,
	}
}

// NewWithClient creates a wake client with a custom HTTP client (for
// testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string, timeout time.Duration) *Impl {
	return &Impl{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
		tracer:     trace.New(logger),
		logger:     logger,
	}
}

// Submit issues one wake call. The credential travels only in the
// request and is never logged; the query is assembled from bytes and
// the working buffer wiped after the call (net/http keeps the final
// URL as an immutable string for the wire). Any HTTP status with a
// decodable body yields the authority's result; transport failures
// and timeouts return an error instead.
func (c *Impl) Submit(ctx context.Context, identifier string, credential []byte) (*models.WakeResult, error) {
	span := c.tracer.Start("wake_submit", trace.CorrelationID(ctx))
	logger := span.Logger().With().Str("identifier", identifier).Logger()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/wake", nil)
	if err != nil {
		span.End("request_error")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	query := append([]byte("id="), url.QueryEscape(identifier)...)
	query = append(query, "&key="...)
	query = appendQueryEscaped(query, credential)
	req.URL.RawQuery = string(query)
	defer credstore.Wipe(query)

	req.Header.Set(correlationHeader, span.CorrelationID())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.End("transport_error")
		return nil, fmt.Errorf("wake call failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	result := &models.WakeResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		span.End("decode_error")
		return nil, fmt.Errorf("decoding wake response (status %d): %w", resp.StatusCode, err)
	}
	if result.CorrelationID == "" {
		result.CorrelationID = span.CorrelationID()
	}

	logger.Info().
		Str("status", string(result.Status)).
		Int("http_status", resp.StatusCode).
		Msg("wake response received")

	span.End(string(result.Status))
	return result, nil
}

// appendQueryEscaped percent-encodes src onto dst byte by byte, so
// the secret never passes through url.QueryEscape's string values.
func appendQueryEscaped(dst, src []byte) []byte {
	const hexDigits = "0123456789ABCDEF"
	for _, b := range src {
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9',
			b == '-', b == '_', b == '.', b == '~':
			dst = append(dst, b)
		case b == ' ':
			dst = append(dst, '+')
		default:
			dst = append(dst, '%', hexDigits[b>>4], hexDigits[b&0x0F])
		}
	}
	return dst
}
