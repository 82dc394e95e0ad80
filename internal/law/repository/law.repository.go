package repository

import (
	"database/sql"
	"encoding/json"

	"gesetzebank/internal/law/model"
	"gesetzebank/pkg/logger"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type LawRepository struct {
	DB *sql.DB
}

func NewLawRepository(db *sql.DB) *LawRepository {
	return &LawRepository{DB: db}
}

// ListSourceTimestamps returns every persisted law's source slug mapped
// to its source timestamp, for diffing against the location store.
func (r *LawRepository) ListSourceTimestamps() (map[string]string, error) {
	rows, err := r.DB.Query(`SELECT gii_slug, source_timestamp FROM laws`)
	if err != nil {
		logger.Sugar.Errorf("Failed to list law timestamps: %v", err)
		return nil, errors.Wrap(err, "listing law timestamps")
	}
	defer rows.Close()

	laws := map[string]string{}
	for rows.Next() {
		var slug, ts string
		if err := rows.Scan(&slug, &ts); err != nil {
			return nil, errors.Wrap(err, "scanning law timestamp row")
		}
		laws[slug] = ts
	}
	return laws, rows.Err()
}

// CreateOrReplace persists a law atomically: any previous law with the
// same doknr is deleted inside the same transaction (cascading to its
// content items and attachments) before the new rows are inserted.
// Content item parents are resolved from batch indexes to row ids here;
// ancestors always precede descendants in source order, so the parent's
// id is known by the time a child is inserted.
func (r *LawRepository) CreateOrReplace(law *model.Law) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return errors.Wrap(err, "starting replace transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM laws WHERE doknr = $1`, law.Doknr); err != nil {
		logger.Sugar.Errorf("Failed to delete previous law %s: %v", law.Doknr, err)
		return errors.Wrapf(err, "deleting previous law %s", law.Doknr)
	}

	publicationInfo, err := json.Marshal(law.PublicationInfo)
	if err != nil {
		return errors.Wrapf(err, "encoding publication info for %s", law.Doknr)
	}
	statusInfo, err := json.Marshal(law.StatusInfo)
	if err != nil {
		return errors.Wrapf(err, "encoding status info for %s", law.Doknr)
	}

	var lawID int64
	err = tx.QueryRow(`
		INSERT INTO laws (doknr, slug, gii_slug, abbreviation, extra_abbreviations,
			first_published, source_timestamp, title_long, title_short,
			publication_info, status_info, notes_body, notes_footnotes, notes_documentary_footnotes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		law.Doknr, law.Slug, law.GiiSlug, law.Abbreviation, pq.Array(law.ExtraAbbreviations),
		law.FirstPublished, law.SourceTimestamp, law.TitleLong, law.TitleShort,
		publicationInfo, statusInfo, law.NotesBody, law.NotesFootnotes, law.NotesDocFootnotes,
	).Scan(&lawID)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert law %s: %v", law.Doknr, err)
		return errors.Wrapf(err, "inserting law %s", law.Doknr)
	}

	itemIDs := make([]int64, len(law.Contents))
	for i, item := range law.Contents {
		var parentID *int64
		if item.Parent >= 0 {
			parentID = &itemIDs[item.Parent]
		}
		err = tx.QueryRow(`
			INSERT INTO content_items (doknr, item_type, name, title, body,
				footnotes, documentary_footnotes, law_id, parent_id, "order")
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`,
			item.Doknr, string(item.ItemType), item.Name, item.Title, item.Body,
			item.Footnotes, item.DocumentaryFootns, lawID, parentID, item.Order,
		).Scan(&itemIDs[i])
		if err != nil {
			logger.Sugar.Errorf("Failed to insert content item %s: %v", item.Doknr, err)
			return errors.Wrapf(err, "inserting content item %s", item.Doknr)
		}
	}

	for _, att := range law.Attachments {
		if _, err := tx.Exec(`INSERT INTO attachments (name, data_uri, law_id) VALUES ($1, $2, $3)`,
			att.Name, att.DataURI, lawID); err != nil {
			logger.Sugar.Errorf("Failed to insert attachment %s of %s: %v", att.Name, law.Doknr, err)
			return errors.Wrapf(err, "inserting attachment %s of %s", att.Name, law.Doknr)
		}
	}

	return errors.Wrapf(tx.Commit(), "committing law %s", law.Doknr)
}

// DeleteByGiiSlugs removes laws by source slug. Callers must only pass
// removal sets that already passed the diff engine's guard.
func (r *LawRepository) DeleteByGiiSlugs(slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}
	_, err := r.DB.Exec(`DELETE FROM laws WHERE gii_slug = ANY($1)`, pq.Array(slugs))
	if err != nil {
		logger.Sugar.Errorf("Failed to bulk delete laws: %v", err)
	}
	return errors.Wrap(err, "bulk deleting laws")
}

// SlugRef identifies one law inside a slug-collision group.
type SlugRef struct {
	ID      int64
	Slug    string
	GiiSlug string
}

// DuplicateSlugGroups returns laws whose derived slug collides with at
// least one other law, grouped by that slug.
func (r *LawRepository) DuplicateSlugGroups() (map[string][]SlugRef, error) {
	rows, err := r.DB.Query(`
		SELECT id, slug, gii_slug FROM laws
		WHERE slug IN (SELECT slug FROM laws GROUP BY slug HAVING COUNT(*) > 1)
		ORDER BY slug, id`)
	if err != nil {
		logger.Sugar.Errorf("Failed to query duplicate slugs: %v", err)
		return nil, errors.Wrap(err, "querying duplicate slugs")
	}
	defer rows.Close()

	groups := map[string][]SlugRef{}
	for rows.Next() {
		var ref SlugRef
		if err := rows.Scan(&ref.ID, &ref.Slug, &ref.GiiSlug); err != nil {
			return nil, errors.Wrap(err, "scanning duplicate slug row")
		}
		groups[ref.Slug] = append(groups[ref.Slug], ref)
	}
	return groups, rows.Err()
}

func (r *LawRepository) UpdateSlug(id int64, slug string) error {
	_, err := r.DB.Exec(`UPDATE laws SET slug = $1 WHERE id = $2`, slug, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to update slug for law %d: %v", id, err)
	}
	return errors.Wrapf(err, "updating slug for law %d", id)
}

// AllLaws loads the whole corpus with contents and attachments, ordered
// by slug, for export.
func (r *LawRepository) AllLaws() ([]model.Law, error) {
	rows, err := r.DB.Query(`
		SELECT id, doknr, slug, gii_slug, abbreviation, extra_abbreviations,
			first_published, source_timestamp, title_long, title_short,
			publication_info, status_info, notes_body, notes_footnotes, notes_documentary_footnotes
		FROM laws ORDER BY slug`)
	if err != nil {
		logger.Sugar.Errorf("Failed to load laws: %v", err)
		return nil, errors.Wrap(err, "loading laws")
	}
	defer rows.Close()

	var laws []model.Law
	var ids []int64
	for rows.Next() {
		var law model.Law
		var id int64
		var publicationInfo, statusInfo []byte
		err := rows.Scan(&id, &law.Doknr, &law.Slug, &law.GiiSlug, &law.Abbreviation,
			pq.Array(&law.ExtraAbbreviations), &law.FirstPublished, &law.SourceTimestamp,
			&law.TitleLong, &law.TitleShort, &publicationInfo, &statusInfo,
			&law.NotesBody, &law.NotesFootnotes, &law.NotesDocFootnotes)
		if err != nil {
			return nil, errors.Wrap(err, "scanning law row")
		}
		if err := json.Unmarshal(publicationInfo, &law.PublicationInfo); err != nil {
			return nil, errors.Wrapf(err, "decoding publication info for %s", law.Doknr)
		}
		if err := json.Unmarshal(statusInfo, &law.StatusInfo); err != nil {
			return nil, errors.Wrapf(err, "decoding status info for %s", law.Doknr)
		}
		laws = append(laws, law)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating law rows")
	}

	for i := range laws {
		if laws[i].Contents, err = r.contentsOf(ids[i]); err != nil {
			return nil, err
		}
		if laws[i].Attachments, err = r.attachmentsOf(ids[i]); err != nil {
			return nil, err
		}
	}
	return laws, nil
}

func (r *LawRepository) contentsOf(lawID int64) ([]model.ContentItem, error) {
	rows, err := r.DB.Query(`
		SELECT id, doknr, item_type, name, title, body, footnotes,
			documentary_footnotes, parent_id, "order"
		FROM content_items WHERE law_id = $1 ORDER BY "order"`, lawID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading contents of law %d", lawID)
	}
	defer rows.Close()

	items := []model.ContentItem{}
	indexByID := map[int64]int{}
	var parentIDs []*int64
	for rows.Next() {
		var item model.ContentItem
		var id int64
		var itemType string
		var parentID *int64
		err := rows.Scan(&id, &item.Doknr, &itemType, &item.Name, &item.Title,
			&item.Body, &item.Footnotes, &item.DocumentaryFootns, &parentID, &item.Order)
		if err != nil {
			return nil, errors.Wrap(err, "scanning content item row")
		}
		item.ItemType = model.ItemType(itemType)
		item.Parent = -1
		indexByID[id] = len(items)
		items = append(items, item)
		parentIDs = append(parentIDs, parentID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating content item rows")
	}

	for i, parentID := range parentIDs {
		if parentID == nil {
			continue
		}
		p, ok := indexByID[*parentID]
		if !ok {
			return nil, errors.Errorf("content item %s references a parent outside its law", items[i].Doknr)
		}
		items[i].Parent = p
		items[i].ParentDoknr = &items[p].Doknr
	}
	return items, nil
}

func (r *LawRepository) attachmentsOf(lawID int64) ([]model.Attachment, error) {
	rows, err := r.DB.Query(`SELECT name, data_uri FROM attachments WHERE law_id = $1 ORDER BY name`, lawID)
	if err != nil {
		return nil, errors.Wrapf(err, "loading attachments of law %d", lawID)
	}
	defer rows.Close()

	attachments := []model.Attachment{}
	for rows.Next() {
		var att model.Attachment
		if err := rows.Scan(&att.Name, &att.DataURI); err != nil {
			return nil, errors.Wrap(err, "scanning attachment row")
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}
