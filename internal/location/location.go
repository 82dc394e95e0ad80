// Package location is the on-disk law store: one directory per source
// slug holding the law's XML, its attachments, and a timestamp marker
// recording when the remote copy was built.
package location

import (
	"encoding/base64"
	"io"
	"mime"
	"os"
	"path/filepath"

	"gesetzebank/internal/law/model"

	"github.com/pkg/errors"
)

// TimestampLayout is the compact UTC form timestamps are stored in. It
// matches the builddate attribute of the source XML, so marker and
// database timestamps compare lexicographically.
const TimestampLayout = "20060102150405"

const timestampFile = ".timestamp"

// ErrLawNotFound marks a slug the store has no directory for.
var ErrLawNotFound = errors.New("law not found in location store")

type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) lawDir(slug string) string {
	return filepath.Join(s.Dir, slug)
}

// ListSlugsWithTimestamps returns every stored law's slug mapped to its
// timestamp marker. A law downloaded before markers existed maps to "".
func (s *Store) ListSlugsWithTimestamps() (map[string]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "listing location store")
	}

	laws := make(map[string]string, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		marker, err := os.ReadFile(filepath.Join(s.lawDir(e.Name()), timestampFile))
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "reading timestamp for %s", e.Name())
		}
		laws[e.Name()] = string(marker)
	}
	return laws, nil
}

// XMLFile opens the stored law XML for slug.
func (s *Store) XMLFile(slug string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.lawDir(slug), slug+".xml"))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrLawNotFound, slug)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening law XML for %s", slug)
	}
	return f, nil
}

// Attachments reads every non-XML file of a stored law as a data URI,
// sorted by name.
func (s *Store) Attachments(slug string) ([]model.Attachment, error) {
	entries, err := os.ReadDir(s.lawDir(slug))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrLawNotFound, slug)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "listing attachments for %s", slug)
	}

	attachments := make([]model.Attachment, 0)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == timestampFile || name == slug+".xml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.lawDir(slug), name))
		if err != nil {
			return nil, errors.Wrapf(err, "reading attachment %s of %s", name, slug)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(name))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		attachments = append(attachments, model.Attachment{
			Name:    name,
			DataURI: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		})
	}
	return attachments, nil
}

// CreateOrReplace replaces a law's directory wholesale with the given
// files and timestamp marker.
func (s *Store) CreateOrReplace(slug, timestamp string, files map[string][]byte) error {
	dir := s.lawDir(slug)
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrapf(err, "clearing law dir for %s", slug)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating law dir for %s", slug)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s for %s", name, slug)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, timestampFile), []byte(timestamp), 0o644); err != nil {
		return errors.Wrapf(err, "writing timestamp for %s", slug)
	}
	return nil
}

// Remove deletes a stored law and everything it owns.
func (s *Store) Remove(slug string) error {
	return errors.Wrapf(os.RemoveAll(s.lawDir(slug)), "removing %s", slug)
}
