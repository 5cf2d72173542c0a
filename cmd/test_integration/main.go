package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("BEACON_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test...")

	fmt.Println("1. Syncing news...")
	var synced struct {
		Events int      `json:"events"`
		New    []string `json:"new"`
	}
	if !sendRequest(baseURL, "POST", "/sync", map[string]any{"backfill_days": 3}, &synced) {
		fmt.Println("FAILED: Sync")
		os.Exit(1)
	}
	fmt.Printf("PASSED: Sync (%d events, %d new)\n", synced.Events, len(synced.New))

	if len(synced.New) == 0 {
		fmt.Println("No new events, skipping scoring")
		return
	}
	event := url.PathEscape(synced.New[0])

	fmt.Println("2. Scoring first new event...")
	if !sendRequest(baseURL, "GET", "/events/"+event+"/score", nil, nil) {
		fmt.Println("FAILED: Score")
		os.Exit(1)
	}
	fmt.Println("PASSED: Score")

	fmt.Println("3. Evaluating novelty...")
	if !sendRequest(baseURL, "POST", "/events/"+event+"/novelty", nil, nil) {
		fmt.Println("FAILED: Novelty")
		os.Exit(1)
	}
	fmt.Println("PASSED: Novelty")
}

func sendRequest(baseURL, method, endpoint string, payload, out any) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}
	fmt.Printf("Response: %s\n", string(respBody))

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			fmt.Printf("Error decoding response: %v\n", err)
			return false
		}
	}
	return true
}
