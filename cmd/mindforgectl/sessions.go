package main

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

type sessionResult struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	StartTime    time.Time `json:"start_time"`
	LastActivity time.Time `json:"last_activity"`
}

func runSessions(c *client, status string, out io.Writer) error {
	params := map[string]string{}
	if status != "" {
		params["status"] = status
	}

	var sessions []sessionResult
	if err := c.call(http.MethodGet, "/api/v1/sessions", nil, params, &sessions); err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(out, "%s  %-9s  %s  (last activity %s)\n",
			s.ID, s.Status, s.Title, s.LastActivity.Format(time.RFC3339))
	}
	return nil
}
