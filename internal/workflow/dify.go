package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultDifyBaseURL = "https://api.dify.ai/v1"

// DifyOptions configures a DifyRunner.
type DifyOptions struct {
	BaseURL     string
	APIKey      string
	InputField  string // workflow input receiving the message text
	OutputField string // workflow output holding the reply
	Timeout     time.Duration
}

// DifyRunner runs a Dify workflow in blocking mode.
type DifyRunner struct {
	opts   DifyOptions
	client *http.Client
}

// NewDifyRunner creates a DifyRunner, filling in defaults.
func NewDifyRunner(opts DifyOptions) *DifyRunner {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultDifyBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.InputField == "" {
		opts.InputField = "query"
	}
	if opts.OutputField == "" {
		opts.OutputField = "text"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &DifyRunner{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

func (d *DifyRunner) Name() string { return "dify" }

type difyRunRequest struct {
	Inputs       map[string]string `json:"inputs"`
	ResponseMode string            `json:"response_mode"`
	User         string            `json:"user"`
}

type difyRunResponse struct {
	WorkflowRunID string `json:"workflow_run_id"`
	Data          struct {
		Status  string         `json:"status"`
		Outputs map[string]any `json:"outputs"`
		Error   string         `json:"error"`
	} `json:"data"`
}

// Run posts the message to /workflows/run and returns the configured output.
func (d *DifyRunner) Run(ctx context.Context, in Input) (string, error) {
	user := in.UserID
	if user == "" {
		user = "wecombot"
	}
	body, err := json.Marshal(difyRunRequest{
		Inputs: map[string]string{
			d.opts.InputField: in.Text,
			"metadata":        in.Metadata,
		},
		ResponseMode: "blocking",
		User:         user,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling workflow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.BaseURL+"/workflows/run", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating workflow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.opts.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("running workflow: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("reading workflow response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("workflow returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var run difyRunResponse
	if err := json.Unmarshal(respBody, &run); err != nil {
		return "", fmt.Errorf("decoding workflow response: %w", err)
	}
	if run.Data.Status != "" && run.Data.Status != "succeeded" {
		return "", fmt.Errorf("workflow %s: %s", run.Data.Status, run.Data.Error)
	}

	out, ok := run.Data.Outputs[d.opts.OutputField]
	if !ok {
		return "", fmt.Errorf("workflow output %q missing", d.opts.OutputField)
	}
	switch v := out.(type) {
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encoding workflow output: %w", err)
		}
		return string(b), nil
	}
}
