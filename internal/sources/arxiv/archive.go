package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/paperwire/arxiv-digest/internal/domain"
)

// maxArchiveBytes caps how much of a source archive is read (200MB).
const maxArchiveBytes = 200 << 20

// DownloadSource downloads the paper's source archive into dir and returns
// the file path. A 404 from the e-print endpoint means the paper has no
// typesetting source and is reported as domain.ErrNotFound; any other
// failure is a transient error (domain.ErrTransient via ExternalAPIError).
//
// The caller owns dir and is responsible for removing it.
func (c *Client) DownloadSource(ctx context.Context, id, dir string) (string, error) {
	srcURL := strings.TrimRight(c.config.EPrintBaseURL, "/") + "/" + id

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewExternalAPIError(sourceName, 0, fmt.Sprintf("downloading source: %v", err), nil)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to the copy below
	case resp.StatusCode == http.StatusNotFound:
		return "", domain.NewNotFoundError("source archive", id)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return "", domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// arXiv ids may contain "/" (old-style); flatten for the filename.
	name := strings.ReplaceAll(id, "/", "_") + ".tar.gz"
	path := filepath.Join(dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating archive file: %w", err)
	}

	if _, err := io.Copy(out, io.LimitReader(resp.Body, maxArchiveBytes)); err != nil {
		out.Close()
		os.Remove(path)
		return "", domain.NewExternalAPIError(sourceName, resp.StatusCode, fmt.Sprintf("reading archive body: %v", err), nil)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing archive file: %w", err)
	}

	return path, nil
}

// FetchSourceToTemp downloads the source archive into a fresh scoped
// temporary directory. The returned cleanup function removes the directory
// and is safe to call on every exit path; when an error is returned the
// directory has already been removed and cleanup is a no-op.
func (c *Client) FetchSourceToTemp(ctx context.Context, id string) (path string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "arxiv-src-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("creating temp dir: %w", err)
	}

	path, err = c.DownloadSource(ctx, id, dir)
	if err != nil {
		os.RemoveAll(dir)
		return "", func() {}, err
	}

	return path, func() { os.RemoveAll(dir) }, nil
}
