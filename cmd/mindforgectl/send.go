package main

import (
	"fmt"
	"io"
	"net/http"
)

type turnResult struct {
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
	Response  string `json:"response"`
}

func runSend(c *client, message string, out io.Writer) error {
	var turn turnResult
	err := c.call(http.MethodPost, "/api/v1/messages",
		map[string]string{"message": message}, nil, &turn)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, turn.Response)
	fmt.Fprintf(out, "\n(session %s, intent %s)\n", turn.SessionID, turn.Intent)
	return nil
}
