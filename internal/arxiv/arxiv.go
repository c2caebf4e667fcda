// Package arxiv fetches arXiv papers and turns them into
// single-chapter books for narration.
package arxiv

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/quillcast/quillcast/internal/book"
)

const (
	queryURL  = "https://export.arxiv.org/api/query?id_list=%s"
	sourceURL = "https://arxiv.org/src/%s"

	maxSourceBytes = 256 << 20
)

// Client talks to the arXiv export API and source mirror.
type Client struct {
	http    *http.Client
	baseAPI string
	baseSrc string
	tempDir string
	log     *slog.Logger
}

// Option adjusts a Client. Used by tests to point at a local server.
type Option func(*Client)

// WithBaseURLs overrides both the metadata API and source endpoints.
func WithBaseURLs(api, src string) Option {
	return func(c *Client) {
		c.baseAPI = api
		c.baseSrc = src
	}
}

// WithTempDir sets where downloaded archives are staged.
func WithTempDir(dir string) Option {
	return func(c *Client) { c.tempDir = dir }
}

func NewClient(log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 2 * time.Minute},
		baseAPI: queryURL,
		baseSrc: sourceURL,
		tempDir: os.TempDir(),
		log:     log.With(slog.String("component", "arxiv")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// paperIDRe accepts both identifier schemes: new-style YYMM.number
// and old-style archive/number such as hep-th/9901001, with an
// optional version suffix.
var paperIDRe = regexp.MustCompile(`^(\d{4}\.\d{4,5}|[a-z-]+(?:\.[A-Z]{2})?/\d{7})(v\d+)?$`)

// ExtractID pulls the paper ID out of an arXiv URL such as
// https://arxiv.org/abs/2312.00752 or
// https://arxiv.org/abs/hep-th/9901001.
func ExtractID(paperURL string) (string, error) {
	parsed, err := url.Parse(paperURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Host != "arxiv.org" && parsed.Host != "www.arxiv.org" {
		return "", errors.New("arxiv: url must be from arxiv.org")
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	// Old-style IDs contain a slash, so try the last segment alone
	// and then the last two joined.
	for n := 1; n <= 2 && n <= len(parts); n++ {
		id := strings.Join(parts[len(parts)-n:], "/")
		if paperIDRe.MatchString(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("arxiv: no paper id in %q", paperURL)
}

type atomFeed struct {
	Entry struct {
		Title string `xml:"title"`
	} `xml:"entry"`
}

// Title fetches the paper title from the export API. A missing title
// is not an error; the ID is returned in its place.
func (c *Client) Title(ctx context.Context, id string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.baseAPI, url.QueryEscape(id)), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("query arxiv api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arxiv api returned %d", resp.StatusCode)
	}
	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return "", fmt.Errorf("decode arxiv api response: %w", err)
	}
	title := strings.Join(strings.Fields(feed.Entry.Title), " ")
	if title == "" {
		c.log.Warn("paper has no title in api response", slog.String("id", id))
		return id, nil
	}
	return title, nil
}

// Paper downloads a paper's LaTeX source and returns it as a
// one-chapter book titled after the paper.
func (c *Client) Paper(ctx context.Context, paperURL string) (*book.Book, error) {
	id, err := ExtractID(paperURL)
	if err != nil {
		return nil, err
	}
	title, err := c.Title(ctx, id)
	if err != nil {
		return nil, err
	}

	c.log.Info("downloading paper source", slog.String("id", id))
	archive, err := c.downloadSource(ctx, id)
	if err != nil {
		return nil, err
	}
	defer os.Remove(archive)

	body, err := mainTexContent(archive)
	if err != nil {
		return nil, err
	}
	text := StripLaTeX(body)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("arxiv: paper %s has no narratable text", id)
	}
	return &book.Book{
		Title:    title,
		Chapters: []book.Chapter{{Title: title, Body: text}},
	}, nil
}

func (c *Client) downloadSource(ctx context.Context, id string) (string, error) {
	// Old-style IDs carry a slash that must stay a path separator, and
	// ExtractID has already constrained the character set.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.baseSrc, id), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download paper source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paper source returned %d", resp.StatusCode)
	}

	f, err := os.CreateTemp(c.tempDir, "quillcast_arxiv_*.tar.gz")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxSourceBytes)); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("save paper source: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// mainTexContent scans the archive for the .tex file that declares the
// document class. Papers ship many include files; only the main one
// starts with \documentclass.
func mainTexContent(archivePath string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("open paper archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read paper archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || filepath.Ext(hdr.Name) != ".tex" {
			continue
		}
		content, err := io.ReadAll(io.LimitReader(tr, maxSourceBytes))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		if strings.HasPrefix(strings.TrimSpace(string(content)), `\documentclass`) {
			return string(content), nil
		}
	}
	return "", errors.New("arxiv: no main .tex file in archive")
}
