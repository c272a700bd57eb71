package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"
	"time"

	"casefile/internal/core"
)

// Format selects a rendering for a case file report.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

func (f Format) contentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatHTML:
		return "text/html"
	default:
		return "application/json"
	}
}

func (f Format) extension() string {
	return "." + string(f)
}

// Status describes the lifecycle stage of a report request.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Artifact captures one stored report rendering.
type Artifact struct {
	Key         string    `json:"key"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ETag        string    `json:"etag,omitempty"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks a report request and its resulting artifacts.
type Record struct {
	ID          string     `json:"id"`
	CaseID      string     `json:"case_id"`
	CaseNumber  string     `json:"case_number,omitempty"`
	Formats     []Format   `json:"formats"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []Artifact `json:"artifacts,omitempty"`
	RequestedBy string     `json:"requested_by"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Input represents an enqueue request for the worker.
type Input struct {
	CaseID      string
	Formats     []Format
	RequestedBy string
	Reason      string
}

// CaseFileSource assembles the case aggregate for rendering. The source
// enforces actor permissions and citizen scoping, so jobs re-check
// visibility with the requesting actor at execution time.
type CaseFileSource interface {
	CaseFile(ctx context.Context, id string) (core.CaseFileView, error)
}

// Scheduler queues report requests and exposes status.
type Scheduler interface {
	EnqueueReport(ctx context.Context, input Input) (Record, error)
	GetReport(id string) (Record, bool)
	ListReportsByCase(caseID string) []Record
}

// Worker renders case file reports asynchronously.
type Worker struct {
	files CaseFileSource
	store core.BlobStore
	audit core.AuditRecorder

	queue chan reportTask
	mu    sync.RWMutex
	jobs  map[string]*Record

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type reportTask struct {
	id     string
	caseID string
}

type renderedReport struct {
	contentType string
	payload     []byte
}

// NewWorker constructs a report worker. The blob store holds rendered
// artifacts under the owning case's key prefix.
func NewWorker(files CaseFileSource, store core.BlobStore, audit core.AuditRecorder) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		files:  files,
		store:  store,
		audit:  audit,
		queue:  make(chan reportTask, 32),
		jobs:   make(map[string]*Record),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the render loop.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
}

// Stop halts the render loop and waits for in-flight work, honoring ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		w.wg.Wait()
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-drained:
		return nil
	}
}

func (w *Worker) run() {
	for {
		select {
		case task := <-w.queue:
			w.process(task)
		case <-w.ctx.Done():
			return
		}
	}
}

// EnqueueReport schedules a report job and returns the queued record.
// Case existence is not checked here: the job resolves the case with the
// requesting actor's permissions when it runs, and fails if the case is
// missing or out of scope.
func (w *Worker) EnqueueReport(ctx context.Context, input Input) (Record, error) {
	if w.files == nil {
		return Record{}, fmt.Errorf("case file source not configured")
	}
	caseID := strings.TrimSpace(input.CaseID)
	if caseID == "" {
		return Record{}, fmt.Errorf("case id required")
	}
	if strings.TrimSpace(input.RequestedBy) == "" {
		return Record{}, fmt.Errorf("requesting user required")
	}

	requested := input.Formats
	if len(requested) == 0 {
		requested = []Format{FormatJSON}
	}
	uniq := make([]Format, 0, len(requested))
	for _, format := range requested {
		switch format {
		case FormatJSON, FormatCSV, FormatHTML:
		default:
			return Record{}, fmt.Errorf("unsupported report format %s", format)
		}
		if slices.Contains(uniq, format) {
			continue
		}
		uniq = append(uniq, format)
	}

	id := core.NewEntityID()
	now := time.Now().UTC()
	record := Record{
		ID:          id,
		CaseID:      caseID,
		Formats:     uniq,
		Status:      StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
	}

	// Copy before publishing; once the pointer is in jobs the render loop
	// may mutate it.
	queued := record.copy()
	w.mu.Lock()
	w.jobs[id] = &record
	w.mu.Unlock()

	w.recordAudit(ctx, "enqueue_case_report", caseID, input.RequestedBy, core.AuditStatusSuccess, "", 0, now)

	select {
	case w.queue <- reportTask{id: id, caseID: caseID}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return Record{}, fmt.Errorf("report queue full")
	}

	return queued, nil
}

// GetReport returns a snapshot of the report record.
func (w *Worker) GetReport(id string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return record.copy(), true
}

// ListReportsByCase returns snapshots of every report requested for a
// case, oldest first.
func (w *Worker) ListReportsByCase(caseID string) []Record {
	w.mu.RLock()
	out := make([]Record, 0)
	for _, record := range w.jobs {
		if record.CaseID == caseID {
			out = append(out, record.copy())
		}
	}
	w.mu.RUnlock()
	slices.SortFunc(out, func(a, b Record) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (w *Worker) process(task reportTask) {
	job := w.snapshot(task.id)
	if job == nil {
		return
	}

	started := time.Now().UTC()
	w.updateStatus(task.id, StatusRunning, "")

	ctx := core.WithActor(w.ctx, job.RequestedBy)
	view, err := w.files.CaseFile(ctx, task.caseID)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("assemble case file: %v", err), started)
		return
	}

	artifacts := make([]Artifact, 0, len(job.Formats))
	for _, format := range job.Formats {
		rendered, err := render(format, view)
		if err != nil {
			w.fail(task.id, err.Error(), started)
			return
		}
		key := fmt.Sprintf("cases/%s/reports/%s%s", task.caseID, task.id, format.extension())
		info, err := w.store.Put(ctx, key, bytes.NewReader(rendered.payload), core.BlobPutOptions{
			ContentType: rendered.contentType,
			Metadata: map[string]string{
				"case_id":   task.caseID,
				"report_id": task.id,
				"format":    string(format),
			},
		})
		if err != nil {
			w.fail(task.id, fmt.Sprintf("store artifact: %v", err), started)
			return
		}
		contentType := info.ContentType
		if contentType == "" {
			contentType = rendered.contentType
		}
		createdAt := info.LastModified
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		artifacts = append(artifacts, Artifact{
			Key:         info.Key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   info.Size,
			ETag:        info.ETag,
			URL:         info.URL,
			CreatedAt:   createdAt,
		})
	}

	w.complete(task.id, view.Case.CaseNumber, artifacts, started)
}

func (w *Worker) snapshot(id string) *Record {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.jobs[id]
}

func (w *Worker) updateStatus(id string, status Status, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	record, ok := w.jobs[id]
	if !ok {
		return
	}
	record.Status = status
	record.Error = message
	record.UpdatedAt = time.Now().UTC()
}

func (w *Worker) complete(id, caseNumber string, artifacts []Artifact, started time.Time) {
	now := time.Now().UTC()
	var caseID, actor string
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusSucceeded
		record.Error = ""
		record.CaseNumber = caseNumber
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
		caseID = record.CaseID
		actor = record.RequestedBy
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, "run_case_report", caseID, actor, core.AuditStatusSuccess, "", now.Sub(started), now)
}

func (w *Worker) fail(id, reason string, started time.Time) {
	now := time.Now().UTC()
	var caseID, actor string
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = StatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
		caseID = record.CaseID
		actor = record.RequestedBy
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, "run_case_report", caseID, actor, core.AuditStatusError, reason, now.Sub(started), now)
}

func (w *Worker) recordAudit(ctx context.Context, op, caseID, actor string, status core.AuditStatus, errMsg string, duration time.Duration, at time.Time) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, core.AuditEntry{
		Operation: op,
		Entity:    core.EntityCase,
		Action:    core.ActionCreate,
		EntityID:  caseID,
		Actor:     actor,
		Status:    status,
		Error:     errMsg,
		Duration:  duration,
		Timestamp: at,
	})
}

func render(format Format, view core.CaseFileView) (renderedReport, error) {
	switch format {
	case FormatJSON:
		payload, err := json.Marshal(view)
		if err != nil {
			return renderedReport{}, fmt.Errorf("marshal json: %w", err)
		}
		return renderedReport{contentType: format.contentType(), payload: payload}, nil
	case FormatCSV:
		payload, err := renderCSV(view)
		if err != nil {
			return renderedReport{}, err
		}
		return renderedReport{contentType: format.contentType(), payload: payload}, nil
	case FormatHTML:
		return renderedReport{contentType: format.contentType(), payload: renderHTML(view)}, nil
	default:
		return renderedReport{}, fmt.Errorf("unsupported report format %s", format)
	}
}

// renderCSV flattens the aggregate into one row per record. Columns stay
// generic so every record type shares the header.
func renderCSV(view core.CaseFileView) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"record", "id", "reference", "summary", "recorded_at"}); err != nil {
		return nil, err
	}
	c := view.Case
	rows := [][]string{
		{"case", c.ID, c.CaseNumber, c.Title, c.FiledAt.Format(time.RFC3339)},
	}
	for _, fir := range view.FIRs {
		rows = append(rows, []string{"fir", fir.ID, fir.FIRNumber, fir.InformantName, fir.FiledAt.Format(time.RFC3339)})
	}
	for _, party := range view.Parties {
		rows = append(rows, []string{"party", party.ID, string(party.Kind), party.Name, party.CreatedAt.Format(time.RFC3339)})
	}
	for _, item := range view.Evidence {
		rows = append(rows, []string{"evidence", item.ID, string(item.Kind), item.Label, item.CreatedAt.Format(time.RFC3339)})
	}
	for _, note := range view.Notes {
		rows = append(rows, []string{"note", note.ID, string(note.Status), note.Body, note.CreatedAt.Format(time.RFC3339)})
	}
	for _, citation := range view.Citations {
		reference := citation.Section.Code
		if citation.Section.Statute != "" {
			reference = citation.Section.Statute + " " + citation.Section.Code
		}
		rows = append(rows, []string{"citation", citation.ID, reference, citation.Section.Title, citation.CreatedAt.Format(time.RFC3339)})
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func renderHTML(view core.CaseFileView) []byte {
	c := view.Case
	buf := &strings.Builder{}
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(html.EscapeString(c.CaseNumber))
	buf.WriteString("</title></head><body>")
	buf.WriteString("<h1>")
	buf.WriteString(html.EscapeString(c.CaseNumber))
	buf.WriteString(" &middot; ")
	buf.WriteString(html.EscapeString(c.Title))
	buf.WriteString("</h1>")
	buf.WriteString("<p>")
	buf.WriteString(html.EscapeString(fmt.Sprintf("%s / %s severity / %s, %s / filed %s",
		c.Status, c.Severity, c.CrimeType, c.District, c.FiledAt.Format(time.RFC3339))))
	buf.WriteString("</p>")
	if c.Description != "" {
		buf.WriteString("<p>")
		buf.WriteString(html.EscapeString(c.Description))
		buf.WriteString("</p>")
	}

	writeTable(buf, "First Information Reports", []string{"Number", "Informant", "Filed", "Supplemental"}, len(view.FIRs), func(i int) []string {
		fir := view.FIRs[i]
		supplemental := "no"
		if fir.Supplemental {
			supplemental = "yes"
		}
		return []string{fir.FIRNumber, fir.InformantName, fir.FiledAt.Format(time.RFC3339), supplemental}
	})
	writeTable(buf, "Parties", []string{"Kind", "Name", "Statement"}, len(view.Parties), func(i int) []string {
		party := view.Parties[i]
		statement := ""
		if party.Statement != nil {
			statement = *party.Statement
		}
		return []string{string(party.Kind), party.Name, statement}
	})
	writeTable(buf, "Evidence", []string{"Label", "Kind", "File", "Status", "Custody Events"}, len(view.Evidence), func(i int) []string {
		item := view.Evidence[i]
		return []string{item.Label, string(item.Kind), item.FileName, string(item.Status), fmt.Sprintf("%d", len(item.Custody))}
	})
	writeTable(buf, "Notes", []string{"Written", "Case Status", "Body"}, len(view.Notes), func(i int) []string {
		note := view.Notes[i]
		return []string{note.CreatedAt.Format(time.RFC3339), string(note.Status), note.Body}
	})
	writeTable(buf, "Cited Sections", []string{"Statute", "Code", "Title", "Notes"}, len(view.Citations), func(i int) []string {
		citation := view.Citations[i]
		notes := ""
		if citation.Notes != nil {
			notes = *citation.Notes
		}
		return []string{citation.Section.Statute, citation.Section.Code, citation.Section.Title, notes}
	})

	buf.WriteString("</body></html>")
	return []byte(buf.String())
}

func writeTable(buf *strings.Builder, heading string, columns []string, count int, row func(int) []string) {
	buf.WriteString("<h2>")
	buf.WriteString(html.EscapeString(heading))
	buf.WriteString("</h2>")
	if count == 0 {
		buf.WriteString("<p>none</p>")
		return
	}
	buf.WriteString("<table><thead><tr>")
	for _, column := range columns {
		fmt.Fprintf(buf, "<th>%s</th>", html.EscapeString(column))
	}
	buf.WriteString("</tr></thead><tbody>")
	for i := range count {
		buf.WriteString("<tr>")
		for _, cell := range row(i) {
			fmt.Fprintf(buf, "<td>%s</td>", html.EscapeString(cell))
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table>")
}

func (r Record) copy() Record {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}
