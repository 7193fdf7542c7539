package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"arbscan/internal/domain"
)

// Archiver implements domain.Archiver: it rolls opportunity history older
// than a cutoff from the database to JSONL files in object storage.
//
// Deletion from the primary store happens here only after the upload is
// verified via a HeadObject round trip; a failed verification leaves the
// rows in place.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	store  domain.OpportunityStore
	audit  domain.AuditStore
}

// NewArchiver creates an Archiver. reader may be nil, in which case the
// upload is trusted without verification and rows are still deleted.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, store domain.OpportunityStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer: writer,
		reader: reader,
		store:  store,
		audit:  audit,
	}
}

// ArchiveOpportunities uploads all opportunities detected before the cutoff
// to archive/opportunities/YYYY-MM.jsonl, verifies the object landed,
// deletes the archived rows and audit-logs the run. Returns the number of
// archived records.
func (a *Archiver) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.store.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath("opportunities", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	if a.reader != nil {
		ok, err := a.reader.Exists(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive verify: %w", err)
		}
		if !ok {
			return 0, fmt.Errorf("s3blob: archive verify: %s missing after upload", path)
		}
	}

	deleted, err := a.store.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive prune: %w", err)
	}

	count := int64(len(opps))
	if err := a.audit.Log(ctx, "archive.opportunities", map[string]any{
		"path":    path,
		"count":   count,
		"deleted": deleted,
		"before":  before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive audit log: %w", err)
	}
	return count, nil
}

// archivePath partitions archive files by the cutoff's year-month:
//
//	archive/opportunities/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON, one compact
// line per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
