// Package relay submits contact messages to the web3forms relay, which
// forwards them by email without a custom backend.
package relay

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
)

const (
	// DefaultEndpoint is the web3forms submission endpoint.
	DefaultEndpoint = "https://api.web3forms.com/submit"
	// DefaultSubject is used when the visitor leaves the subject empty.
	DefaultSubject = "Portfolio Contact Form"
	// FromName is the fixed sender name shown in the forwarded email.
	FromName = "Portfolio Contact Form"

	maxResponseBytes = 1 << 20
)

var (
	// ErrMissingAccessKey means the relay credential was never configured.
	ErrMissingAccessKey = errors.New("relay: access key is not configured")
	// ErrTransport covers network failures, non-2xx replies and unreadable bodies.
	ErrTransport = errors.New("relay: transport failure")
	// ErrRejected means the relay answered but reported success=false.
	ErrRejected = errors.New("relay: submission rejected")
)

// Config configures a Client.
type Config struct {
	Endpoint  string        `koanf:"endpoint"`
	AccessKey string        `koanf:"access_key"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Submission is one visitor message.
type Submission struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type payload struct {
	AccessKey string `json:"access_key"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	FromName  string `json:"from_name"`
}

// Reply is the relay's answer.
type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client posts submissions to the relay endpoint.
type Client struct {
	endpoint  string
	accessKey string
	http      *http.Client
}

// New returns a client, failing when the access key is blank.
func New(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.AccessKey)
	if key == "" {
		return nil, ErrMissingAccessKey
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint:  endpoint,
		accessKey: key,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Send performs exactly one POST for s.
func (c *Client) Send(ctx context.Context, s Submission) error {
	_, err := c.Submit(ctx, s)
	return err
}

// Submit posts s and returns the decoded reply. Any failure is wrapped in
// ErrTransport or ErrRejected.
func (c *Client) Submit(ctx context.Context, s Submission) (*Reply, error) {
	subject := s.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	body, err := json.Marshal(payload{
		AccessKey: c.accessKey,
		Name:      s.Name,
		Email:     s.Email,
		Subject:   subject,
		Message:   s.Message,
		FromName:  FromName,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding body: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %v", ErrTransport, err)
	}
	if !reply.Success {
		return &reply, fmt.Errorf("%w: %s", ErrRejected, reply.Message)
	}
	return &reply, nil
}
