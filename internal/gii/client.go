// Package gii talks to the gesetze-im-internet.de publication site: the
// table of contents listing, per-law update probes, and zip downloads.
package gii

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"gesetzebank/internal/location"
	"gesetzebank/pkg/logger"

	"github.com/pkg/errors"
)

const defaultBaseURL = "https://www.gesetze-im-internet.de"

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

type tocXML struct {
	XMLName xml.Name  `xml:"items"`
	Items   []tocItem `xml:"item"`
}

type tocItem struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

// FetchTOC downloads the corpus table of contents and returns each law's
// source slug mapped to its zip download URL. The slug is the law's
// directory name on the site, taken from the link path.
func (c *Client) FetchTOC(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/gii-toc.xml", nil)
	if err != nil {
		return nil, errors.Wrap(err, "building toc request")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching toc")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetching toc: HTTP %d", resp.StatusCode)
	}

	var toc tocXML
	if err := xml.NewDecoder(resp.Body).Decode(&toc); err != nil {
		return nil, errors.Wrap(err, "decoding toc")
	}

	urls := make(map[string]string, len(toc.Items))
	for _, item := range toc.Items {
		slug, err := slugFromLink(item.Link)
		if err != nil {
			return nil, err
		}
		urls[slug] = item.Link
	}
	return urls, nil
}

// slugFromLink extracts the law directory from a download link, e.g.
// ".../aeg_1994/xml.zip" -> "aeg_1994".
func slugFromLink(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", errors.Wrapf(err, "parsing toc link %q", link)
	}
	slug := path.Base(path.Dir(u.Path))
	if slug == "." || slug == "/" || slug == "" {
		return "", errors.Errorf("toc link %q has no law directory", link)
	}
	return slug, nil
}

// HasUpdate probes downloadURL with a HEAD request and reports whether
// the remote copy is newer than the stored timestamp marker. A missing
// marker or a missing Last-Modified header counts as updated; transport
// errors propagate rather than masking as "no update".
func (c *Client) HasUpdate(ctx context.Context, downloadURL, previousTimestamp string) (bool, error) {
	if previousTimestamp == "" {
		return true, nil
	}
	prev, err := time.Parse(location.TimestampLayout, previousTimestamp)
	if err != nil {
		return false, errors.Wrapf(err, "parsing stored timestamp %q", previousTimestamp)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, downloadURL, nil)
	if err != nil {
		return false, errors.Wrap(err, "building update probe")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, errors.Wrapf(err, "probing %s", downloadURL)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, errors.Errorf("probing %s: HTTP %d", downloadURL, resp.StatusCode)
	}

	lastModified := resp.Header.Get("Last-Modified")
	if lastModified == "" {
		logger.Sugar.Debugf("No Last-Modified for %s, treating as updated", downloadURL)
		return true, nil
	}
	remote, err := http.ParseTime(lastModified)
	if err != nil {
		return false, errors.Wrapf(err, "parsing Last-Modified %q", lastModified)
	}
	return remote.UTC().After(prev), nil
}

// Download fetches a law's zip and unpacks it into the location store.
// The single XML entry is stored as <slug>.xml; everything else is kept
// as an attachment under its own name.
func (c *Client) Download(ctx context.Context, slug, downloadURL string, store *location.Store) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return errors.Wrap(err, "building download request")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "downloading %s", slug)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("downloading %s: HTTP %d", slug, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading zip for %s", slug)
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return errors.Wrapf(err, "opening zip for %s", slug)
	}

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, "opening %s in zip for %s", f.Name, slug)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return errors.Wrapf(err, "reading %s in zip for %s", f.Name, slug)
		}
		name := path.Base(f.Name)
		if strings.HasSuffix(strings.ToLower(name), ".xml") {
			name = slug + ".xml"
		}
		files[name] = data
	}
	if _, ok := files[slug+".xml"]; !ok {
		return errors.Errorf("zip for %s contains no XML file", slug)
	}

	timestamp := ""
	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if remote, err := http.ParseTime(lastModified); err == nil {
			timestamp = remote.UTC().Format(location.TimestampLayout)
		}
	}

	return store.CreateOrReplace(slug, timestamp, files)
}
