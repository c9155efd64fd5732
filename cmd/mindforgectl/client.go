package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// envelope mirrors the API response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type client struct {
	http *resty.Client
}

func newClient() *client {
	c := resty.New().
		SetBaseURL(addrFlag).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
	if tokenFlag != "" {
		c.SetAuthToken(tokenFlag)
	}
	return &client{http: c}
}

// call runs one request and unwraps the response envelope into out.
func (c *client) call(method, path string, body any, query map[string]string, out any) error {
	req := c.http.R()
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	if env.Error != "" {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), env.Error)
	}
	if resp.IsError() {
		return fmt.Errorf("http %d", resp.StatusCode())
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
