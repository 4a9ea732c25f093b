// internal/adapters/confirm/client.go
package confirm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pnr_cleaner/internal/adapters/observability"
	"pnr_cleaner/internal/domain"
)

// Client calls the remote confirmation API once per Confirm call.
// Retries belong to the dispatcher; the client only classifies failures.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("confirmation base URL is required")
	}
	if rps <= 0 {
		rps = 20
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type confirmRequest struct {
	PNR           string `json:"pnr"`
	PassengerName string `json:"passenger_name"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Fare          string `json:"fare"`
	Status        string `json:"status"`
}

// StatusError carries the remote status for failures that are not plain transport errors.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote %d", e.Code)
	}
	return fmt.Sprintf("remote %d: %s", e.Code, e.Body)
}

func (c *Client) Confirm(ctx context.Context, r domain.Reservation) error {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(confirmRequest{
		PNR:           r.ID,
		PassengerName: r.PassengerName,
		Origin:        r.Origin,
		Destination:   r.Destination,
		Fare:          r.Fare.String(),
		Status:        string(r.Status),
	})
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", domain.ErrPermanent, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/confirmations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPermanent, err)
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pnr-cleaner/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("confirm", "confirmations", 0, time.Since(start))
		// network error or context canceled; both surface as-is (transient unless ctx is done)
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("confirm", "confirmations", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300,
		resp.StatusCode == http.StatusConflict: // already confirmed
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode}

	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Join(domain.ErrPermanent, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))})
	}
}
