// Package judge0 is an alternate analysis backend that runs code on a
// remote Judge0 instance instead of the local sandbox.
package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/sandbox"
)

// ErrRemote wraps every failure talking to Judge0.
var ErrRemote = fmt.Errorf("%w: judge0", sandbox.ErrExecutionInfra)

// Judge0 status ids.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeErrorFirst = 7
	StatusRuntimeErrorLast  = 12
	StatusInternalError     = 13
	StatusExecFormatError   = 14
)

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type Submission struct {
	SourceCode    string `json:"source_code"`
	LanguageID    int    `json:"language_id"`
	Stdin         string `json:"stdin"`
	CPUTimeLimit  string `json:"cpu_time_limit,omitempty"`
	WallTimeLimit string `json:"wall_time_limit,omitempty"`
	MemoryLimitKB int    `json:"memory_limit,omitempty"`
}

type Result struct {
	Stdout        string `json:"stdout"`
	Stderr        string `json:"stderr"`
	CompileOutput string `json:"compile_output"`
	Message       string `json:"message"`
	Status        Status `json:"status"`
	Time          string `json:"time"`
	Memory        int    `json:"memory"`
}

type language struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type Client struct {
	base   string
	apiKey string
	http   *http.Client
	logger *zerolog.Logger

	mu  sync.Mutex
	ids map[string]int
}

func NewClient(base, apiKey string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
		ids:    make(map[string]int),
	}
}

// LanguageID returns the id of the first language whose name contains
// term, case-insensitively. Results are cached for the client's lifetime.
func (c *Client) LanguageID(ctx context.Context, term string) (int, error) {
	term = strings.ToLower(term)
	c.mu.Lock()
	id, ok := c.ids[term]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var langs []language
	if err := c.do(ctx, http.MethodGet, "/languages", nil, &langs); err != nil {
		return 0, err
	}
	for _, l := range langs {
		if strings.Contains(strings.ToLower(l.Name), term) || strings.Contains(strings.ToLower(l.DisplayName), term) {
			c.mu.Lock()
			c.ids[term] = l.ID
			c.mu.Unlock()
			return l.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: no language matching %q", ErrRemote, term)
}

// Submit runs s synchronously and returns the finished result.
func (c *Client) Submit(ctx context.Context, s Submission) (*Result, error) {
	q := url.Values{}
	q.Set("base64_encoded", "false")
	q.Set("wait", "true")

	var res Result
	if err := c.do(ctx, http.MethodPost, "/submissions?"+q.Encode(), s, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Auth-Token", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %s: %s", ErrRemote, method, path, resp.Status, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4*sandbox.DefaultMaxOutputBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrRemote, err)
	}
	return nil
}
