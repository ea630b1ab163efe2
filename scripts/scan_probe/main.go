// Command scan_probe replays a list of RFID tags against a running API
// instance. It is used to smoke-test scanner connectivity after deploys and
// to seed demo environments.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type probeResult struct {
	RFID     string
	Status   int
	Body     string
	Duration time.Duration
	Err      error
}

func main() {
	var (
		baseURL  string
		tagsPath string
		timeout  time.Duration
		delay    time.Duration
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&tagsPath, "tags", "", "Path to a file with one RFID tag per line")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.DurationVar(&delay, "delay", 0, "Pause between scans")
	flag.Parse()

	if tagsPath == "" {
		log.Fatal("missing -tags file")
	}

	tags, err := loadTags(tagsPath)
	if err != nil {
		log.Fatalf("failed to load tags: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var failures int
	results := make([]probeResult, 0, len(tags))
	for _, tag := range tags {
		res := probe(client, baseURL, tag)
		if res.Err != nil || res.Status != http.StatusOK {
			failures++
		}
		results = append(results, res)
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	printReport(results)

	fmt.Printf("Scans: %d, Failures: %d\n", len(results), failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadTags(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var tags []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		tag := strings.TrimSpace(scanner.Text())
		if tag == "" || strings.HasPrefix(tag, "#") {
			continue
		}
		tags = append(tags, tag)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("no tags found in %s", path)
	}
	return tags, nil
}

func probe(client *http.Client, baseURL, tag string) probeResult {
	res := probeResult{RFID: tag}

	payload, err := json.Marshal(map[string]string{"rfid": tag})
	if err != nil {
		res.Err = err
		return res
	}

	url := strings.TrimRight(baseURL, "/") + "/api/attendance"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			res.Body = body.Message
		} else {
			res.Body = body.Status
		}
	}
	return res
}

func printReport(results []probeResult) {
	fmt.Println("Scan Probe Report")
	fmt.Println("=================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if res.Status != http.StatusOK {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s\n", status, res.RFID)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  Status: %d (%s) %s\n", res.Status, res.Duration, res.Body)
	}
}
