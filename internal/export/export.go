// Package export writes the persisted corpus as JSON: one file per law,
// a gzipped corpus file, and a tar.gz bundle of the per-law files.
package export

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"gesetzebank/internal/law/model"
	"gesetzebank/pkg/logger"

	"github.com/pkg/errors"
)

// lawResponse wraps a single law the way API consumers expect it.
type lawResponse struct {
	Data model.Law `json:"data"`
}

type corpusResponse struct {
	Data []model.Law `json:"data"`
}

// WriteLawFiles writes laws/<slug>.json per law plus all_laws.json.gz
// under dir.
func WriteLawFiles(laws []model.Law, dir string) error {
	lawsDir := filepath.Join(dir, "laws")
	if err := os.MkdirAll(lawsDir, 0o755); err != nil {
		return errors.Wrap(err, "creating laws dir")
	}

	for _, law := range laws {
		data, err := json.MarshalIndent(lawResponse{Data: law}, "", "  ")
		if err != nil {
			return errors.Wrapf(err, "encoding %s", law.Slug)
		}
		path := filepath.Join(lawsDir, law.Slug+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
	}

	corpus, err := json.MarshalIndent(corpusResponse{Data: laws}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding corpus")
	}
	return writeGzipped(filepath.Join(dir, "all_laws.json.gz"), append(corpus, '\n'))
}

func writeGzipped(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", path)
	}
	return f.Close()
}

// WriteArchive bundles dir/laws into dir/all_laws.tar.gz with "laws" as
// the archive root.
func WriteArchive(dir string) error {
	f, err := os.Create(filepath.Join(dir, "all_laws.tar.gz"))
	if err != nil {
		return errors.Wrap(err, "creating archive")
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	tw := tar.NewWriter(zw)

	lawsDir := filepath.Join(dir, "laws")
	entries, err := os.ReadDir(lawsDir)
	if err != nil {
		return errors.Wrap(err, "listing laws dir")
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return errors.Wrapf(err, "stating %s", e.Name())
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return errors.Wrapf(err, "building tar header for %s", e.Name())
		}
		hdr.Name = filepath.ToSlash(filepath.Join("laws", e.Name()))
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Wrapf(err, "writing tar header for %s", e.Name())
		}
		src, err := os.Open(filepath.Join(lawsDir, e.Name()))
		if err != nil {
			return errors.Wrapf(err, "opening %s", e.Name())
		}
		_, err = io.Copy(tw, src)
		src.Close()
		if err != nil {
			return errors.Wrapf(err, "archiving %s", e.Name())
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "closing tar writer")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "closing gzip writer")
	}
	return f.Close()
}

type LawSource interface {
	AllLaws() ([]model.Law, error)
}

// Corpus loads every persisted law and writes the full export layout.
func Corpus(source LawSource, dir string) error {
	logger.Sugar.Info("Generating json files")
	laws, err := source.AllLaws()
	if err != nil {
		return err
	}
	if err := WriteLawFiles(laws, dir); err != nil {
		return err
	}
	logger.Sugar.Info("Creating tarball")
	return WriteArchive(dir)
}
