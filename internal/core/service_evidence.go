package core

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"casefile/pkg/domain"
)

// maxEvidenceBytes caps uploaded evidence payloads at 10 MiB.
const maxEvidenceBytes = 10 << 20

// extensionKinds maps permitted file extensions to the evidence kind
// recorded for them. Files outside this set are rejected before any blob
// write.
var extensionKinds = map[string]EvidenceKind{
	".jpg": domain.EvidenceImage, ".jpeg": domain.EvidenceImage, ".png": domain.EvidenceImage,
	".gif": domain.EvidenceImage, ".bmp": domain.EvidenceImage, ".tiff": domain.EvidenceImage,
	".webp": domain.EvidenceImage,
	".pdf":  domain.EvidenceDocument, ".doc": domain.EvidenceDocument, ".docx": domain.EvidenceDocument,
	".txt": domain.EvidenceDocument, ".rtf": domain.EvidenceDocument,
	".mp3": domain.EvidenceAudio, ".wav": domain.EvidenceAudio, ".m4a": domain.EvidenceAudio,
	".ogg": domain.EvidenceAudio, ".aac": domain.EvidenceAudio,
	".mp4": domain.EvidenceVideo, ".avi": domain.EvidenceVideo, ".mov": domain.EvidenceVideo,
	".wmv": domain.EvidenceVideo, ".mkv": domain.EvidenceVideo, ".webm": domain.EvidenceVideo,
	".zip": domain.EvidenceOther, ".rar": domain.EvidenceOther, ".7z": domain.EvidenceOther,
}

// EvidenceKindForFile returns the evidence kind for a file name, or false
// when the extension is not accepted.
func EvidenceKindForFile(fileName string) (EvidenceKind, bool) {
	kind, ok := extensionKinds[strings.ToLower(path.Ext(fileName))]
	return kind, ok
}

// EvidenceInput describes an evidence upload. Location seeds the first
// chain-of-custody event.
type EvidenceInput struct {
	Label       string
	FileName    string
	ContentType string
	Location    string
}

// AddEvidence validates and stores an evidence payload, then records the
// item inside a transaction. The payload lands in the blob store under
// cases/<case>/evidence/<id><ext> before the transaction runs; if commit is
// blocked the blob is deleted again.
func (s *Service) AddEvidence(ctx context.Context, caseID string, input EvidenceInput, payload io.Reader) (Evidence, Result, error) {
	var (
		item Evidence
		res  Result
	)
	err := s.run(ctx, "add_evidence", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermEvidenceWrite)
		if err != nil {
			return "", err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return "", err
		}
		fileName := strings.TrimSpace(input.FileName)
		if fileName == "" {
			return "", ValidationError{Field: "file_name", Reason: "required"}
		}
		ext := strings.ToLower(path.Ext(fileName))
		kind, ok := extensionKinds[ext]
		if !ok {
			return "", ValidationError{Field: "file_name", Reason: fmt.Sprintf("extension %q not accepted", ext)}
		}

		data, err := io.ReadAll(io.LimitReader(payload, maxEvidenceBytes+1))
		if err != nil {
			return "", fmt.Errorf("read evidence payload: %w", err)
		}
		if len(data) > maxEvidenceBytes {
			return "", ValidationError{Field: "payload", Reason: fmt.Sprintf("exceeds %d byte limit", maxEvidenceBytes)}
		}
		if len(data) == 0 {
			return "", ValidationError{Field: "payload", Reason: "empty"}
		}
		digest := sha256.Sum256(data)

		contentType := strings.TrimSpace(input.ContentType)
		if contentType == "" {
			contentType = mime.TypeByExtension(ext)
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		evidenceID := NewEntityID()
		objectKey := fmt.Sprintf("cases/%s/evidence/%s%s", caseID, evidenceID, ext)
		info, err := s.opts.blobs.Put(ctx, objectKey, bytes.NewReader(data), BlobPutOptions{
			ContentType: contentType,
			Metadata: map[string]string{
				"case_id":     caseID,
				"evidence_id": evidenceID,
				"file_name":   fileName,
			},
		})
		if err != nil {
			return "", fmt.Errorf("store evidence payload: %w", err)
		}

		now := s.nowFn()
		label := strings.TrimSpace(input.Label)
		if label == "" {
			label = fileName
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			item, err = tx.CreateEvidence(Evidence{
				Base:          Base{ID: evidenceID},
				CaseID:        caseID,
				Label:         label,
				Kind:          kind,
				FileName:      fileName,
				ObjectKey:     info.Key,
				SizeBytes:     info.Size,
				ContentType:   contentType,
				SHA256:        hex.EncodeToString(digest[:]),
				CollectedByID: actor.ID,
				Status:        EvidenceStored,
				Custody: []CustodyEvent{{
					Actor:     actor.Name,
					Location:  strings.TrimSpace(input.Location),
					Timestamp: now,
				}},
			})
			return err
		})
		if txErr != nil {
			if _, delErr := s.opts.blobs.Delete(ctx, objectKey); delErr != nil {
				s.opts.logger.Warn("orphaned evidence blob after aborted transaction",
					"object_key", objectKey, "error", delErr)
			}
			return "", txErr
		}
		return item.ID, nil
	})
	return item, res, err
}

// AppendCustody extends an evidence item's chain of custody. Custody
// appends stay legal after the owning case closes.
func (s *Service) AppendCustody(ctx context.Context, evidenceID, location string, notes *string) (Evidence, Result, error) {
	var (
		extended Evidence
		res      Result
	)
	err := s.run(ctx, "append_custody", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermEvidenceWrite)
		if err != nil {
			return evidenceID, err
		}
		if _, err := s.requireEvidenceCase(actor, role, evidenceID); err != nil {
			return evidenceID, err
		}
		if strings.TrimSpace(location) == "" {
			return evidenceID, ValidationError{Field: "location", Reason: "required"}
		}
		now := s.nowFn()
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			extended, err = tx.UpdateEvidence(evidenceID, func(e *Evidence) error {
				e.Custody = append(e.Custody, CustodyEvent{
					Actor:     actor.Name,
					Location:  strings.TrimSpace(location),
					Timestamp: now,
					Notes:     notes,
				})
				return nil
			})
			return err
		})
		return evidenceID, txErr
	})
	return extended, res, err
}

// ReleaseEvidence marks an item released from storage. The row and its
// blob remain; release is recorded in the chain of custody.
func (s *Service) ReleaseEvidence(ctx context.Context, evidenceID, reason string) (Evidence, Result, error) {
	var (
		released Evidence
		res      Result
	)
	err := s.run(ctx, "release_evidence", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermEvidenceWrite)
		if err != nil {
			return evidenceID, err
		}
		current, err := s.requireEvidenceCase(actor, role, evidenceID)
		if err != nil {
			return evidenceID, err
		}
		if current.Status == EvidenceReleased {
			return evidenceID, ValidationError{Field: "status", Reason: "evidence already released"}
		}
		now := s.nowFn()
		var releaseNotes *string
		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			releaseNotes = &trimmed
		}
		var txErr error
		res, txErr = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			released, err = tx.UpdateEvidence(evidenceID, func(e *Evidence) error {
				e.Status = EvidenceReleased
				e.ReleasedAt = &now
				e.Custody = append(e.Custody, CustodyEvent{
					Actor:     actor.Name,
					Location:  "released",
					Timestamp: now,
					Notes:     releaseNotes,
				})
				return nil
			})
			return err
		})
		return evidenceID, txErr
	})
	return released, res, err
}

// GetEvidence returns an evidence item, subject to citizen scoping through
// its case.
func (s *Service) GetEvidence(ctx context.Context, id string) (Evidence, error) {
	var item Evidence
	err := s.run(ctx, "get_evidence", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermEvidenceRead)
		if err != nil {
			return id, err
		}
		item, err = s.requireEvidenceCase(actor, role, id)
		return id, err
	})
	return item, err
}

// ListEvidenceByCase returns a case's evidence ordered by creation time.
func (s *Service) ListEvidenceByCase(ctx context.Context, caseID string) ([]Evidence, error) {
	var items []Evidence
	err := s.run(ctx, "list_evidence_by_case", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermEvidenceRead)
		if err != nil {
			return caseID, err
		}
		if _, err := s.requireCase(actor, role, caseID); err != nil {
			return caseID, err
		}
		err = s.store.View(ctx, func(v TransactionView) error {
			items = v.EvidenceByCase(caseID)
			return nil
		})
		return caseID, err
	})
	return items, err
}

// OpenEvidence returns an evidence item together with a reader over its
// stored payload. The caller owns the reader.
func (s *Service) OpenEvidence(ctx context.Context, id string) (Evidence, io.ReadCloser, error) {
	var (
		item Evidence
		rc   io.ReadCloser
	)
	err := s.run(ctx, "open_evidence", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermEvidenceRead)
		if err != nil {
			return id, err
		}
		item, err = s.requireEvidenceCase(actor, role, id)
		if err != nil {
			return id, err
		}
		_, rc, err = s.opts.blobs.Get(ctx, item.ObjectKey)
		if err != nil {
			return id, fmt.Errorf("open evidence payload: %w", err)
		}
		return id, nil
	})
	return item, rc, err
}

// EvidenceDownloadURL returns a presigned GET URL for an evidence payload.
// Drivers without URL support surface ErrBlobUnsupported.
func (s *Service) EvidenceDownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	var url string
	err := s.run(ctx, "evidence_download_url", func(ctx context.Context) (string, error) {
		actor, role, err := s.requireActor(ctx, domain.PermEvidenceRead)
		if err != nil {
			return id, err
		}
		item, err := s.requireEvidenceCase(actor, role, id)
		if err != nil {
			return id, err
		}
		url, err = s.opts.blobs.PresignURL(ctx, item.ObjectKey, BlobSignedURLOptions{Method: "GET", Expiry: expiry})
		return id, err
	})
	return url, err
}

// requireEvidenceCase loads an evidence item and applies case scoping.
func (s *Service) requireEvidenceCase(actor User, role Role, id string) (Evidence, error) {
	item, ok := s.store.GetEvidence(id)
	if !ok {
		return Evidence{}, ErrNotFound{Entity: "evidence", ID: id}
	}
	if _, err := s.requireCase(actor, role, item.CaseID); err != nil {
		return Evidence{}, err
	}
	return item, nil
}
