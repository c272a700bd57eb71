package core_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"casefile/internal/core"
	"casefile/pkg/domain"
)

func TestAddEvidenceValidation(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	inv := actorCtx(actors.investigator)

	var invalid core.ValidationError
	_, _, err := svc.AddEvidence(inv, c.ID, core.EvidenceInput{FileName: "payload.exe"}, strings.NewReader("MZ"))
	if !errors.As(err, &invalid) || invalid.Field != "file_name" {
		t.Fatalf("executable upload: %v", err)
	}
	_, _, err = svc.AddEvidence(inv, c.ID, core.EvidenceInput{FileName: "empty.pdf"}, strings.NewReader(""))
	if !errors.As(err, &invalid) || invalid.Field != "payload" {
		t.Fatalf("empty upload: %v", err)
	}
	oversized := bytes.NewReader(make([]byte, 10<<20+1))
	_, _, err = svc.AddEvidence(inv, c.ID, core.EvidenceInput{FileName: "dump.zip"}, oversized)
	if !errors.As(err, &invalid) || invalid.Field != "payload" {
		t.Fatalf("oversized upload: %v", err)
	}

	// Rejected uploads leave no blobs behind.
	keys, err := svc.Blobs().List(context.Background(), "cases/"+c.ID+"/")
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("stray blobs after rejected uploads: %v", keys)
	}
}

func TestAddEvidenceStoresPayload(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	inv := actorCtx(actors.investigator)

	payload := []byte("jpeg bytes standing in for a crime scene photograph")
	item, _, err := svc.AddEvidence(inv, c.ID, core.EvidenceInput{
		FileName: "scene.jpg",
		Location: "Evidence locker 4, Central station",
	}, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("add evidence: %v", err)
	}

	if item.Kind != domain.EvidenceImage || item.Status != core.EvidenceStored {
		t.Fatalf("classified as %s/%s", item.Kind, item.Status)
	}
	if item.Label != "scene.jpg" {
		t.Fatalf("label should default to the file name, got %q", item.Label)
	}
	digest := sha256.Sum256(payload)
	if item.SHA256 != hex.EncodeToString(digest[:]) {
		t.Fatalf("digest mismatch: %s", item.SHA256)
	}
	if item.SizeBytes != int64(len(payload)) {
		t.Fatalf("size = %d", item.SizeBytes)
	}
	wantPrefix := "cases/" + c.ID + "/evidence/"
	if !strings.HasPrefix(item.ObjectKey, wantPrefix) || !strings.HasSuffix(item.ObjectKey, ".jpg") {
		t.Fatalf("object key = %q", item.ObjectKey)
	}
	if item.ContentType != "image/jpeg" {
		t.Fatalf("content type = %q", item.ContentType)
	}
	if item.CollectedByID != actors.investigator.ID {
		t.Fatalf("collector = %q", item.CollectedByID)
	}
	if len(item.Custody) != 1 {
		t.Fatalf("custody chain = %+v", item.Custody)
	}
	seed := item.Custody[0]
	if seed.Actor != actors.investigator.Name || seed.Location != "Evidence locker 4, Central station" {
		t.Fatalf("custody seed = %+v", seed)
	}

	info, err := svc.Blobs().Head(context.Background(), item.ObjectKey)
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("blob size = %d", info.Size)
	}

	got, rc, err := svc.OpenEvidence(inv, item.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	if got.ID != item.ID {
		t.Fatalf("open returned %q", got.ID)
	}
	roundTrip, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if !bytes.Equal(roundTrip, payload) {
		t.Fatalf("payload corrupted in storage")
	}
}

func TestCustodyChainAppends(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	inv := actorCtx(actors.investigator)

	item, _, err := svc.AddEvidence(inv, c.ID, core.EvidenceInput{
		FileName: "statement.pdf",
		Location: "Collected at scene",
	}, strings.NewReader("%PDF-1.4 witness statement"))
	if err != nil {
		t.Fatalf("add evidence: %v", err)
	}

	var invalid core.ValidationError
	if _, _, err := svc.AppendCustody(inv, item.ID, "   ", nil); !errors.As(err, &invalid) || invalid.Field != "location" {
		t.Fatalf("blank location: %v", err)
	}

	notes := "sealed for forensics"
	moved, _, err := svc.AppendCustody(inv, item.ID, "Forensic lab, Hyderabad", &notes)
	if err != nil {
		t.Fatalf("append custody: %v", err)
	}
	if len(moved.Custody) != 2 {
		t.Fatalf("custody chain = %+v", moved.Custody)
	}
	last := moved.Custody[1]
	if last.Actor != actors.investigator.Name || last.Location != "Forensic lab, Hyderabad" {
		t.Fatalf("custody event = %+v", last)
	}
	if last.Notes == nil || *last.Notes != notes {
		t.Fatalf("custody notes = %v", last.Notes)
	}
	if last.Timestamp.Before(moved.Custody[0].Timestamp) {
		t.Fatalf("custody timestamps out of order")
	}

	// Custody keeps moving after the case closes.
	if _, _, err := svc.TransitionCaseStatus(inv, c.ID, core.StatusClosed, ""); err != nil {
		t.Fatalf("close: %v", err)
	}
	afterClose, _, err := svc.AppendCustody(inv, item.ID, "Returned to evidence locker", nil)
	if err != nil {
		t.Fatalf("custody after close: %v", err)
	}
	if len(afterClose.Custody) != 3 {
		t.Fatalf("custody chain after close = %+v", afterClose.Custody)
	}
}

func TestReleaseEvidence(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	inv := actorCtx(actors.investigator)

	item, _, err := svc.AddEvidence(inv, c.ID, core.EvidenceInput{FileName: "chain.zip"}, strings.NewReader("PK archive"))
	if err != nil {
		t.Fatalf("add evidence: %v", err)
	}

	released, _, err := svc.ReleaseEvidence(inv, item.ID, "returned to owner after court order")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != core.EvidenceReleased || released.ReleasedAt == nil {
		t.Fatalf("released item = %+v", released)
	}
	last := released.Custody[len(released.Custody)-1]
	if last.Location != "released" || last.Notes == nil || *last.Notes != "returned to owner after court order" {
		t.Fatalf("release custody event = %+v", last)
	}
	// Release never deletes the payload.
	if _, err := svc.Blobs().Head(context.Background(), released.ObjectKey); err != nil {
		t.Fatalf("blob gone after release: %v", err)
	}

	var invalid core.ValidationError
	if _, _, err := svc.ReleaseEvidence(inv, item.ID, "again"); !errors.As(err, &invalid) || invalid.Field != "status" {
		t.Fatalf("double release: %v", err)
	}
}

func TestReleaseBlockedOnClosedCase(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	inv := actorCtx(actors.investigator)

	item, _, err := svc.AddEvidence(inv, c.ID, core.EvidenceInput{FileName: "weapon.png"}, strings.NewReader("png bytes"))
	if err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	if _, _, err := svc.TransitionCaseStatus(inv, c.ID, core.StatusClosed, ""); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Release mutates status, so it is not covered by the custody exception.
	var violation domain.RuleViolationError
	if _, _, err := svc.ReleaseEvidence(inv, item.ID, "premature"); !errors.As(err, &violation) {
		t.Fatalf("release on closed case: %v", err)
	}
	got, err := svc.GetEvidence(inv, item.ID)
	if err != nil || got.Status != core.EvidenceStored {
		t.Fatalf("blocked release applied: %+v %v", got, err)
	}
}

func TestAddEvidenceOnClosedCaseDeletesBlob(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	inv := actorCtx(actors.investigator)

	if _, _, err := svc.TransitionCaseStatus(inv, c.ID, core.StatusClosed, ""); err != nil {
		t.Fatalf("close: %v", err)
	}

	var violation domain.RuleViolationError
	_, _, err := svc.AddEvidence(inv, c.ID, core.EvidenceInput{FileName: "late.mp4"}, strings.NewReader("mp4 bytes"))
	if !errors.As(err, &violation) {
		t.Fatalf("evidence on closed case: %v", err)
	}

	// The blocked transaction's compensating delete removed the payload.
	keys, err := svc.Blobs().List(context.Background(), "cases/"+c.ID+"/")
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("orphaned blobs: %v", keys)
	}
	items, err := svc.ListEvidenceByCase(inv, c.ID)
	if err != nil || len(items) != 0 {
		t.Fatalf("evidence rows after block: %v %v", items, err)
	}
}

func TestEvidenceDownloadURLOnMemoryDriver(t *testing.T) {
	svc, actors := seedService(t)
	c, _ := fileCase(t, svc, actors.officer, core.CaseDraft{})
	inv := actorCtx(actors.investigator)

	item, _, err := svc.AddEvidence(inv, c.ID, core.EvidenceInput{FileName: "cctv.mkv"}, strings.NewReader("matroska"))
	if err != nil {
		t.Fatalf("add evidence: %v", err)
	}
	if _, err := svc.EvidenceDownloadURL(inv, item.ID, time.Minute); !errors.Is(err, core.ErrBlobUnsupported) {
		t.Fatalf("presign on memory driver: %v", err)
	}
}
