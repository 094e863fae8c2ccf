package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/lastned/lastned/internal/engine/types"
	"github.com/lastned/lastned/internal/utils"
)

// readClipboard is swapped out in tests.
var readClipboard = clipboard.ReadAll

// parseRequestLine parses "url | title | SxxEyy". Title and episode are optional;
// a missing title is derived from the URL path.
func parseRequestLine(line string) (types.DownloadRequest, error) {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	req := types.DownloadRequest{URL: parts[0], Selected: true}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.DownloadRequest{}, fmt.Errorf("invalid URL %q", req.URL)
	}
	if len(parts) > 1 {
		req.Title = parts[1]
	}
	if len(parts) > 2 {
		req.SeasonEpisode = strings.ToUpper(parts[2])
	}
	if req.Title == "" {
		if title, err := utils.TitleFromURL(req.URL); err == nil {
			req.Title = title
		}
	}
	return req, nil
}

// parseRequests reads one request per line, skipping blanks and # comments.
func parseRequests(r io.Reader) ([]types.DownloadRequest, error) {
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long URLs (default is 64KB, increase to 1MB)
	const maxCapacity = 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	var reqs []types.DownloadRequest
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		req, err := parseRequestLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read requests: %w", err)
	}
	return reqs, nil
}

// readRequestsFromFile reads a batch file of request lines.
func readRequestsFromFile(path string) ([]types.DownloadRequest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return parseRequests(file)
}

// readRequestsFromClipboard parses the clipboard text the same way as a batch file.
func readRequestsFromClipboard() ([]types.DownloadRequest, error) {
	text, err := readClipboard()
	if err != nil {
		return nil, fmt.Errorf("failed to read clipboard: %w", err)
	}
	return parseRequests(strings.NewReader(text))
}

// requestSources is everything get can take requests from.
type requestSources struct {
	Args      []string
	BatchFile string
	Clipboard bool

	// Title and Episode apply only when exactly one URL is given on the command line
	Title   string
	Episode string
}

func collectRequests(src requestSources) ([]types.DownloadRequest, error) {
	var reqs []types.DownloadRequest

	for _, arg := range src.Args {
		req, err := parseRequestLine(arg)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if len(reqs) == 1 {
		if src.Title != "" {
			reqs[0].Title = src.Title
		}
		if src.Episode != "" {
			reqs[0].SeasonEpisode = strings.ToUpper(src.Episode)
		}
	}

	if src.BatchFile != "" {
		fileReqs, err := readRequestsFromFile(src.BatchFile)
		if err != nil {
			return nil, fmt.Errorf("error reading batch file: %w", err)
		}
		reqs = append(reqs, fileReqs...)
	}

	if src.Clipboard {
		clipReqs, err := readRequestsFromClipboard()
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, clipReqs...)
	}
	return reqs, nil
}
