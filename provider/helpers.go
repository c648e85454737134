package provider

import (
	"fmt"
	"io"
	"net/http"
)

// Responses from both drive APIs stay small; the cap guards against a
// misbehaving endpoint streaming forever.
const maxResponseBytes = 4 << 20

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
