package main

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

type nodeResult struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Content string  `json:"content"`
	Weight  float64 `json:"weight"`
}

type statsResult struct {
	NodeCount        int            `json:"node_count"`
	EdgeCount        int            `json:"edge_count"`
	TypeDistribution map[string]int `json:"type_distribution"`
	Complexity       float64        `json:"complexity"`
}

func runSearch(c *client, query, nodeType string, limit int, out io.Writer) error {
	params := map[string]string{"q": query}
	if nodeType != "" {
		params["type"] = nodeType
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	var nodes []nodeResult
	if err := c.call(http.MethodGet, "/api/v1/graph/search", nil, params, &nodes); err != nil {
		return err
	}

	if len(nodes) == 0 {
		fmt.Fprintln(out, "no matches")
		return nil
	}
	for _, n := range nodes {
		fmt.Fprintf(out, "%s  [%s]  %s  (weight %.2f)\n", n.ID, n.Type, n.Content, n.Weight)
	}
	return nil
}

func runStats(c *client, out io.Writer) error {
	var stats statsResult
	if err := c.call(http.MethodGet, "/api/v1/graph/stats", nil, nil, &stats); err != nil {
		return err
	}

	fmt.Fprintf(out, "nodes:      %d\n", stats.NodeCount)
	fmt.Fprintf(out, "edges:      %d\n", stats.EdgeCount)
	fmt.Fprintf(out, "complexity: %.2f\n", stats.Complexity)
	for t, n := range stats.TypeDistribution {
		fmt.Fprintf(out, "  %-14s %d\n", t, n)
	}
	return nil
}

func runCleanup(c *client, maxAge string, out io.Writer) error {
	var result map[string]int
	err := c.call(http.MethodPost, "/api/v1/graph/cleanup",
		map[string]string{"max_age": maxAge}, nil, &result)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "removed %d nodes\n", result["removed"])
	return nil
}
