package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Replays a recording against a running mediafix server the way a browser
// recorder would: the file is cut into chunks, the first one is uploaded to
// /audio and every later one to /repair. Repaired answers are written to the
// output directory so they can be played one by one.

type Config struct {
	BaseURL      string
	Session      string
	Input        string
	OutputDir    string
	ContentType  string
	Username     string
	Password     string
	Chunks       int
	Interval     time.Duration
	Timeout      time.Duration
	MaxRetries   int
	BackoffError time.Duration
	MaxBackoff   time.Duration
}

func main() {
	cfg := defaultConfig()
	if v := strings.TrimSpace(os.Getenv("MEDIAFIX_URL")); v != "" {
		cfg.BaseURL = v
	}
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "mediafix server URL (or env MEDIAFIX_URL)")
	flag.StringVar(&cfg.Session, "session", cfg.Session, "session name")
	flag.StringVar(&cfg.Input, "input", "", "recording to replay")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory for repaired chunks")
	flag.StringVar(&cfg.ContentType, "content-type", cfg.ContentType, "content type sent with every chunk")
	flag.StringVar(&cfg.Username, "user", "", "basic auth user (or env MEDIAFIX_USER)")
	flag.IntVar(&cfg.Chunks, "chunks", cfg.Chunks, "number of chunks to cut the recording into")
	flag.DurationVar(&cfg.Interval, "interval", cfg.Interval, "delay between uploads")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP client timeout")
	flag.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "max retries per request")
	flag.DurationVar(&cfg.BackoffError, "backoff-error", cfg.BackoffError, "initial backoff for 5xx")
	flag.DurationVar(&cfg.MaxBackoff, "max-backoff", cfg.MaxBackoff, "max backoff delay")
	flag.Parse()

	if cfg.Username == "" {
		cfg.Username = strings.TrimSpace(os.Getenv("MEDIAFIX_USER"))
	}
	cfg.Password = os.Getenv("MEDIAFIX_PASSWORD")
	if err := validateConfig(cfg); err != nil {
		fatalf("config error: %v", err)
	}

	data, err := os.ReadFile(cfg.Input)
	if err != nil {
		fatalf("read input: %v", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		fatalf("create output dir: %v", err)
	}

	ctx := context.Background()
	client := &http.Client{Timeout: cfg.Timeout}
	ext := filepath.Ext(cfg.Input)

	for i, chunk := range split(data, cfg.Chunks) {
		endpoint := "/repair/"
		if i == 0 {
			endpoint = "/audio/"
		}
		body, err := upload(ctx, client, cfg, endpoint+cfg.Session, chunk)
		if err != nil {
			fatalf("chunk %d: %v", i, err)
		}
		if i > 0 {
			out := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s-%03d%s", cfg.Session, i, ext))
			if err := os.WriteFile(out, body, 0o644); err != nil {
				fatalf("write %s: %v", out, err)
			}
			fmt.Printf("chunk %d: %d bytes in, %d bytes repaired -> %s\n", i, len(chunk), len(body), out)
		} else {
			fmt.Printf("chunk %d: %d bytes stored\n", i, len(chunk))
		}
		if err := sleepBackoff(ctx, cfg.Interval); err != nil {
			fatalf("%v", err)
		}
	}
}

func defaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:3000",
		Session:      "replay",
		OutputDir:    "replay",
		ContentType:  "audio/webm;codecs=opus",
		Chunks:       5,
		Interval:     500 * time.Millisecond,
		Timeout:      30 * time.Second,
		MaxRetries:   4,
		BackoffError: time.Second,
		MaxBackoff:   10 * time.Second,
	}
}

func validateConfig(cfg Config) error {
	if cfg.Input == "" {
		return errors.New("missing -input")
	}
	if cfg.Chunks < 2 {
		return errors.New("chunks must be >= 2")
	}
	if cfg.MaxRetries < 1 {
		return errors.New("max-retries must be >= 1")
	}
	if cfg.Username != "" && cfg.Password == "" {
		return errors.New("MEDIAFIX_PASSWORD must be set with -user")
	}
	return nil
}

// split cuts data into n parts of about the same size. Cuts fall anywhere,
// including inside elements, like timeslices of a browser recorder.
func split(data []byte, n int) [][]byte {
	size := (len(data) + n - 1) / n
	if size == 0 {
		return nil
	}
	var out [][]byte
	for start := 0; start < len(data); start += size {
		out = append(out, data[start:min(start+size, len(data))])
	}
	return out
}

func upload(ctx context.Context, client *http.Client, cfg Config, path string, chunk []byte) ([]byte, error) {
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		u := strings.TrimRight(cfg.BaseURL, "/") + path
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(chunk))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", cfg.ContentType)
		req.Header.Set("User-Agent", "go-mediafix-replay/1.0")
		if cfg.Username != "" {
			req.SetBasicAuth(cfg.Username, cfg.Password)
		}

		resp, err := client.Do(req)
		if err != nil {
			if attempt == cfg.MaxRetries {
				return nil, err
			}
			if err := sleepBackoff(ctx, backoffDuration(cfg.BackoffError, cfg.MaxBackoff, attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusUnauthorized:
			return nil, fmt.Errorf("401 unauthorized: check -user and MEDIAFIX_PASSWORD")
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			if attempt == cfg.MaxRetries {
				return nil, fmt.Errorf("status=%d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
			if err := sleepBackoff(ctx, backoffDuration(cfg.BackoffError, cfg.MaxBackoff, attempt)); err != nil {
				return nil, err
			}
			continue
		default:
			return nil, fmt.Errorf("status=%d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
	}

	return nil, errors.New("unreachable")
}

func backoffDuration(base, max time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
