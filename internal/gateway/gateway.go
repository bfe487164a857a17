// Package gateway talks to the remote to-do API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/taskdeck/taskdeck/internal/task"
)

// DefaultBaseURL is the public demo API the app syncs against.
const DefaultBaseURL = "https://dummyjson.com/todos"

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// Error kinds carried by RemoteError.
const (
	KindFetch  = "fetch"
	KindCreate = "create"
	KindDelete = "delete"
)

// RemoteError reports a transport or HTTP failure against the remote
// API. Status is zero for transport-level failures.
type RemoteError struct {
	Kind   string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s failed: status %d: %s", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s failed: %s", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// todosSchema describes the fetch payload. The demo API is loosely
// typed (numeric or string ids), so the response is checked against
// this before decoding rather than trusted blindly.
const todosSchema = `{
	"type": "object",
	"required": ["todos"],
	"properties": {
		"todos": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "todo", "completed"],
				"properties": {
					"id": {"type": ["integer", "string"]},
					"todo": {"type": "string"},
					"completed": {"type": "boolean"},
					"userId": {"type": "integer"}
				}
			}
		}
	}
}`

var compiledTodosSchema = jsonschema.MustCompileString("todos.schema.json", todosSchema)

// wireTodo is the remote representation of a task.
type wireTodo struct {
	ID        json.Number   `json:"id"`
	Todo      string        `json:"todo"`
	Completed bool          `json:"completed"`
	UserID    int           `json:"userId"`
	DueDate   task.FlexTime `json:"dueDate,omitempty"`
}

type todosPayload struct {
	Todos []wireTodo `json:"todos"`
}

// Client is the remote task gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a gateway client. An empty baseURL selects the demo API.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTasks retrieves the remote snapshot. The demo API carries no
// due dates, so they are synthesized: task i is due i/3 days from now.
// The result is never nil on success; failures are *RemoteError.
func (c *Client) FetchTasks(ctx context.Context) ([]task.Task, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, &RemoteError{Kind: KindFetch, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteError{Kind: KindFetch, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Kind: KindFetch, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Kind: KindFetch, Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected response: %s", bytes.TrimSpace(raw))}
	}

	var payload todosPayload
	if err := c.decodeValidated(raw, &payload); err != nil {
		return nil, &RemoteError{Kind: KindFetch, Err: err}
	}

	now := c.now()
	tasks := make([]task.Task, 0, len(payload.Todos))
	for i, w := range payload.Todos {
		due := w.DueDate.Time
		if due.IsZero() {
			due = now.AddDate(0, 0, i/3)
		}
		tasks = append(tasks, task.Task{
			ID:        w.ID.String(),
			Text:      w.Todo,
			Due:       task.At(due),
			Completed: w.Completed,
			Owner:     w.UserID,
		})
	}
	return tasks, nil
}

// decodeValidated checks raw against the todos schema, then decodes it.
func (c *Client) decodeValidated(raw []byte, into *todosPayload) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse todos payload: %w", err)
	}
	if err := compiledTodosSchema.Validate(doc); err != nil {
		return fmt.Errorf("todos payload rejected by schema: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode todos payload: %w", err)
	}
	return nil
}

// CreateTask posts a new task to the remote. On any failure it falls
// back to a synthesized local task with a provisional id instead of
// surfacing the error: offline creation must never block the user.
func (c *Client) CreateTask(ctx context.Context, text string, due time.Time) (task.Task, error) {
	now := c.now()
	remote, err := c.createRemote(ctx, text, due)
	if err == nil {
		remote.CreatedAt = now
		return remote, nil
	}
	c.logger.Warn("remote create failed, keeping task locally", "err", err)
	return task.Task{
		ID:        task.NewLocalID(now),
		Text:      text,
		Due:       task.At(due),
		Owner:     1,
		CreatedAt: now,
	}, nil
}

func (c *Client) createRemote(ctx context.Context, text string, due time.Time) (task.Task, error) {
	body, err := json.Marshal(map[string]any{
		"todo":      text,
		"completed": false,
		"userId":    1,
		"dueDate":   due.Format(time.RFC3339),
	})
	if err != nil {
		return task.Task{}, fmt.Errorf("marshal create payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add", bytes.NewReader(body))
	if err != nil {
		return task.Task{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return task.Task{}, &RemoteError{Kind: KindCreate, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return task.Task{}, &RemoteError{Kind: KindCreate, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return task.Task{}, &RemoteError{Kind: KindCreate, Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected response: %s", bytes.TrimSpace(raw))}
	}

	var w wireTodo
	if err := json.Unmarshal(raw, &w); err != nil {
		return task.Task{}, &RemoteError{Kind: KindCreate, Err: fmt.Errorf("decode create response: %w", err)}
	}
	return task.Task{
		ID:        w.ID.String(),
		Text:      text,
		Due:       task.At(due),
		Owner:     w.UserID,
	}, nil
}

// DeleteTask removes a task remotely. Ids recognized as purely local
// are never sent. A not-found response means the task is already gone
// and counts as success.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if task.IsLocalID(id) {
		c.logger.Debug("skipping remote delete for local task", "id", id)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/"+id, nil)
	if err != nil {
		return &RemoteError{Kind: KindDelete, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Kind: KindDelete, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		c.logger.Debug("remote task already gone", "id", id)
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &RemoteError{Kind: KindDelete, Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected response: %s", bytes.TrimSpace(raw))}
	}
	return nil
}
