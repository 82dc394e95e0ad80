package service

import (
	"context"

	"gesetzebank/internal/gii"
	"gesetzebank/internal/law/parser"
	"gesetzebank/internal/law/repository"
	"gesetzebank/internal/location"
	"gesetzebank/internal/syncer"
	"gesetzebank/pkg/logger"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// slugOverrides resolves historical slug collisions by hand: for a
// contested slug, it maps each law's source slug to the slug it should
// keep. Every other collision participant falls back to its source slug.
var slugOverrides = map[string]map[string]string{
	"aeg":  {"aeg_1994": "aeg", "aeg": "aeg_2"},
	"afrg": {"altfrg": "afrg", "afrg": "afrg_2"},
	"gbv":  {"gbv_2011": "gbv"},
	"stvo": {"stvo_2013": "stvo"},
}

type IngestService struct {
	Repo     *repository.LawRepository
	Location *location.Store
	Client   *gii.Client

	// StrictCollisions turns a slug collision without an override entry
	// into a hard error instead of the source-slug fallback.
	StrictCollisions bool
}

func NewIngestService(repo *repository.LawRepository, store *location.Store, client *gii.Client) *IngestService {
	return &IngestService{Repo: repo, Location: store, Client: client}
}

// DownloadLaws synchronizes the location store against the remote table
// of contents: new and updated laws are downloaded, removed ones deleted.
// A failed listing aborts; a failed per-law download is recorded and the
// rest of the batch continues.
func (s *IngestService) DownloadLaws(ctx context.Context) error {
	logger.Sugar.Info("Fetching toc.xml")
	downloadURLs, err := s.Client.FetchTOC(ctx)
	if err != nil {
		return err
	}

	logger.Sugar.Info("Loading timestamps")
	onDisk, err := s.Location.ListSlugsWithTimestamps()
	if err != nil {
		return err
	}

	diff, err := syncer.Calculate(lo.Keys(onDisk), lo.Keys(downloadURLs))
	if err != nil {
		return err
	}

	logger.Sugar.Infof("Checking %d existing laws for updates", len(diff.Existing))
	updated, err := syncer.CheckUpdates(ctx, diff.Existing, func(ctx context.Context, slug string) (bool, error) {
		return s.Client.HasUpdate(ctx, downloadURLs[slug], onDisk[slug])
	})
	if err != nil {
		return err
	}

	var failed []string
	toFetch := append(append([]string{}, diff.New...), updated...)
	logger.Sugar.Infof("Adding %d new and updated laws", len(toFetch))
	for _, slug := range toFetch {
		if err := s.Client.Download(ctx, slug, downloadURLs[slug], s.Location); err != nil {
			logger.Sugar.Errorf("Failed to download %s: %v", slug, err)
			failed = append(failed, slug)
		}
	}

	logger.Sugar.Infof("Deleting %d removed laws", len(diff.Removed))
	for _, slug := range diff.Removed {
		if err := s.Location.Remove(slug); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		return errors.Errorf("%d of %d downloads failed: %v", len(failed), len(toFetch), failed)
	}
	return nil
}

// IngestFromLocation synchronizes the database against the location
// store: new and updated laws are parsed and persisted, slug collisions
// resolved, removed laws deleted. Per-law parse or persist failures are
// recorded and skipped so one bad document does not block the corpus.
func (s *IngestService) IngestFromLocation(ctx context.Context) error {
	logger.Sugar.Info("Loading timestamps")
	onDisk, err := s.Location.ListSlugsWithTimestamps()
	if err != nil {
		return err
	}
	inDB, err := s.Repo.ListSourceTimestamps()
	if err != nil {
		return err
	}

	diff, err := syncer.Calculate(lo.Keys(inDB), lo.Keys(onDisk))
	if err != nil {
		return err
	}

	updated, err := syncer.CheckUpdates(ctx, diff.Existing, func(_ context.Context, slug string) (bool, error) {
		return onDisk[slug] > inDB[slug], nil
	})
	if err != nil {
		return err
	}

	var failed []string
	toIngest := append(append([]string{}, diff.New...), updated...)
	logger.Sugar.Infof("Ingesting %d new and updated laws", len(toIngest))
	for _, slug := range toIngest {
		if err := s.IngestLaw(slug); err != nil {
			logger.Sugar.Errorf("Failed to ingest %s: %v", slug, err)
			failed = append(failed, slug)
		}
	}

	if err := s.FixupSlugDuplicates(); err != nil {
		return err
	}

	logger.Sugar.Infof("Deleting %d removed laws", len(diff.Removed))
	if err := s.Repo.DeleteByGiiSlugs(diff.Removed); err != nil {
		return err
	}

	if len(failed) > 0 {
		return errors.Errorf("%d of %d laws failed to ingest: %v", len(failed), len(toIngest), failed)
	}
	return nil
}

// IngestLaw parses one stored law and persists it wholesale.
func (s *IngestService) IngestLaw(slug string) error {
	f, err := s.Location.XMLFile(slug)
	if err != nil {
		return err
	}
	defer f.Close()

	law, err := parser.ParseLaw(f)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", slug)
	}
	law.GiiSlug = slug

	if law.Attachments, err = s.Location.Attachments(slug); err != nil {
		return err
	}

	return s.Repo.CreateOrReplace(law)
}

// FixupSlugDuplicates disambiguates laws sharing a derived slug. Each
// participant falls back to its source slug unless the override table
// assigns it something else; in strict mode an un-overridden collision
// aborts instead.
func (s *IngestService) FixupSlugDuplicates() error {
	groups, err := s.Repo.DuplicateSlugGroups()
	if err != nil {
		return err
	}

	for slug, refs := range groups {
		overrides := slugOverrides[slug]
		for _, ref := range refs {
			newSlug, ok := overrides[ref.GiiSlug]
			if !ok {
				if s.StrictCollisions {
					return errors.Errorf("unconfigured slug collision on %q (law %s)", slug, ref.GiiSlug)
				}
				newSlug = ref.GiiSlug
			}
			if newSlug == ref.Slug {
				continue
			}
			if err := s.Repo.UpdateSlug(ref.ID, newSlug); err != nil {
				return err
			}
		}
	}
	return nil
}
