// Package moodle acquires course files from a Moodle instance through the
// mokitul plugin endpoints.
package moodle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
	moodleopts "github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/options/moodle"
)

const (
	downloadPath = "/local/mokitul/api/download.php"
	filesPath    = "/local/mokitul/api/files.php"

	apiKeyParam   = "api_key"
	fileIDParam   = "file_id"
	courseIDParam = "course_id"
)

// filenamePattern extracts the quoted filename from a Content-Disposition
// header.
var filenamePattern = regexp.MustCompile(`"(.*?)"`)

// File describes a course file on local disk after acquisition.
type File struct {
	// ID is the Moodle file id.
	ID string

	// OriginalName is the filename Moodle reported, empty when the file
	// was already cached locally.
	OriginalName string

	// LocalPath is where the file lives on disk.
	LocalPath string

	// FreshlyDownloaded reports whether this call fetched the file. When
	// false the file existed already and needs no re-indexing.
	FreshlyDownloaded bool
}

// Client fetches course files and file listings from Moodle.
type Client interface {
	// Download fetches the file with the given id, or reuses the local
	// copy when one exists.
	Download(ctx context.Context, fileID string) (*File, error)

	// FileIDsForCourse lists the ids of all files of a course.
	FileIDsForCourse(ctx context.Context, courseID string) ([]string, error)
}

// client is the HTTP implementation of Client.
type client struct {
	host        string
	apiKey      string
	downloadDir string
	httpClient  *http.Client
}

// NewClient creates a Client from options. The download directory is
// created when missing.
func NewClient(opts *moodleopts.Options) (Client, error) {
	if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir %s: %w", opts.DownloadDir, err)
	}

	return &client{
		host:        opts.Host,
		apiKey:      opts.APIKey,
		downloadDir: opts.DownloadDir,
		httpClient:  &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (c *client) buildURL(path string, params url.Values) string {
	params.Set(apiKeyParam, c.apiKey)
	return c.host + path + "?" + params.Encode()
}

// Download fetches a file by id. Completed downloads are written through a
// temporary file and renamed into place so a failed transfer never leaves
// a partial file behind.
func (c *client) Download(ctx context.Context, fileID string) (*File, error) {
	localPath := filepath.Join(c.downloadDir, fileID+".pdf")

	if _, err := os.Stat(localPath); err == nil {
		logger.Debugw("file already downloaded", "file_id", fileID, "path", localPath)
		return &File{
			ID:                fileID,
			LocalPath:         localPath,
			FreshlyDownloaded: false,
		}, nil
	}

	params := url.Values{}
	params.Set(fileIDParam, fileID)
	reqURL := c.buildURL(downloadPath, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.ErrMoodleUnavailable.WithCause(err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrMoodleUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.ErrMoodleFileNotFound.WithMessage("file %s not known to Moodle", fileID)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.ErrMoodleUnavailable.WithMessage(
			"download of file %s failed with status %d: %s", fileID, resp.StatusCode, string(body))
	}

	originalName := parseFilename(resp.Header.Get("Content-Disposition"))

	if err := writeAtomic(localPath, resp.Body); err != nil {
		return nil, errors.ErrMoodleUnavailable.WithMessage("storing file %s failed", fileID).WithCause(err)
	}

	logger.Infow("downloaded course file",
		"file_id", fileID,
		"filename", originalName,
		"duration", time.Since(start).String(),
	)

	return &File{
		ID:                fileID,
		OriginalName:      originalName,
		LocalPath:         localPath,
		FreshlyDownloaded: true,
	}, nil
}

// FileIDsForCourse lists all file ids of a course.
func (c *client) FileIDsForCourse(ctx context.Context, courseID string) ([]string, error) {
	params := url.Values{}
	params.Set(courseIDParam, courseID)
	reqURL := c.buildURL(filesPath, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.ErrMoodleUnavailable.WithCause(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrMoodleUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.ErrMoodleUnavailable.WithMessage(
			"file listing for course %s failed with status %d: %s", courseID, resp.StatusCode, string(body))
	}

	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, errors.ErrMoodleUnavailable.WithMessage("file listing for course %s is malformed", courseID).WithCause(err)
	}
	return ids, nil
}

// parseFilename pulls the quoted filename out of a Content-Disposition
// header. Returns the raw header value when no quotes are present.
func parseFilename(header string) string {
	if header == "" {
		return ""
	}
	if m := filenamePattern.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	return header
}

// writeAtomic streams body to path via a temp file in the same directory
// followed by a rename.
func writeAtomic(path string, body io.Reader) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
