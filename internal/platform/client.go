package platform

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const requestTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// doJSON executes the request and decodes a 2xx JSON response into out.
// Non-2xx statuses are classified into typed adapter errors.
func doJSON(client *http.Client, platform, op string, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return wrapError(platform, op, KindTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(platform, op, KindTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(platform, op, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return wrapError(platform, op, KindRejected, err)
	}
	return nil
}
