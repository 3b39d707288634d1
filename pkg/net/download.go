package net

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
)

var (
	reqTransport = &http.Transport{
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       timeoutInSeconds * time.Second,
		DisableCompression:    true,
		DisableKeepAlives:     false,
		ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
	}

	// ErrorURLNotFound indicates the remote file does not exist.
	ErrorURLNotFound = errors.New("URL not found")
)

func getResp(url string) (*http.Response, error) {
	c := http.Client{
		Timeout:   time.Duration(timeoutInSeconds) * time.Second,
		Transport: reqTransport,
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}

	return c.Do(req)
}

// Download fetches url into filepath.
func Download(url string, filepath string) (retErr error) {
	out, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	resp, err := getResp(url)
	if err != nil {
		return fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrorURLNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	_, err = io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("error saving downloaded content to file: %w", err)
	}

	return nil
}

// FetchMissing downloads any of the named files not already present in dir
// from baseURL. Existing files are never re-downloaded.
func FetchMissing(baseURL, dir string, files []string) error {
	if baseURL == "" {
		return errors.New("base URL required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating dataset dir %s: %w", dir, err)
	}

	base := strings.TrimSuffix(baseURL, "/")
	for _, name := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			slog.Debug("dataset file present, skipping download", "file", name)
			continue
		}

		url := base + "/" + name
		slog.Info("downloading dataset file", "url", url)
		if err := Download(url, path); err != nil {
			// Leave no partial file behind on failure.
			os.Remove(path)
			return fmt.Errorf("fetching %s: %w", name, err)
		}
	}
	return nil
}
