package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// adminClient talks to the loopback admin endpoints of a running server.
type adminClient struct {
	base string
	http *http.Client
}

func newAdminClient(baseURL string, timeout time.Duration) adminClient {
	return adminClient{
		base: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// call issues method on /admin/v1/<endpoint> and decodes the JSON reply. A
// non-2xx status is an error carrying the server's message when it sent one.
func (c adminClient) call(method, endpoint string) (map[string]any, error) {
	req, err := http.NewRequest(method, c.base+"/admin/v1/"+endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var body map[string]any
	decErr := json.Unmarshal(raw, &body)
	if resp.StatusCode/100 != 2 {
		if msg, ok := body["error"].(string); ok && msg != "" {
			return body, fmt.Errorf("%s %s: %s", method, endpoint, msg)
		}
		return body, fmt.Errorf("%s %s: %s", method, endpoint, strings.TrimSpace(resp.Status))
	}
	if decErr != nil {
		return nil, fmt.Errorf("%s %s: decode: %w", method, endpoint, decErr)
	}
	return body, nil
}

func adminFlags(name string, args []string) adminClient {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	_ = fs.Parse(args)
	return newAdminClient(*baseURL, *timeout)
}

func stateCmd(args []string) {
	body, err := adminFlags("state", args).call(http.MethodGet, "state")
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	printJSON(body)
}

func saveCmd(args []string) {
	if _, err := adminFlags("save", args).call(http.MethodPost, "save"); err != nil {
		fmt.Fprintln(os.Stderr, "save:", err)
		os.Exit(1)
	}
	fmt.Println("saved")
}
