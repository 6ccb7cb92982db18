package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"resumind/internal/host"
	"resumind/internal/pdfimg"
	"resumind/internal/platform"
	"resumind/internal/shared/telemetry"
)

var (
	ErrNotSignedIn  = errors.New("not signed in")
	ErrNotFound     = errors.New("resume not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Service runs the resume flows on top of the access layer.
type Service struct {
	Store    *platform.Store
	Pipeline *pdfimg.Pipeline
	newID    func() string
}

// NewService constructs a Service.
func NewService(store *platform.Store, pipeline *pdfimg.Pipeline) *Service {
	return &Service{Store: store, Pipeline: pipeline, newID: uuid.NewString}
}

// AnalyzeInput is one resume submission.
type AnalyzeInput struct {
	File           *pdfimg.File
	CompanyName    string
	JobTitle       string
	JobDescription string
	// Progress, if set, receives human readable status lines.
	Progress func(status string)
}

func (in AnalyzeInput) progress(status string) {
	if in.Progress != nil {
		in.Progress(status)
	}
}

// Analyze uploads the resume and its preview, persists the record and
// stores the model's feedback on it.
func (s *Service) Analyze(ctx context.Context, in AnalyzeInput) (Record, error) {
	if !s.Store.Auth().IsAuthenticated() {
		return Record{}, ErrNotSignedIn
	}
	if in.File == nil || len(in.File.Data) == 0 {
		return Record{}, fmt.Errorf("%w: resume file is required", ErrInvalidInput)
	}

	in.progress("Uploading the file...")
	uploaded, ok := s.Store.FS().Upload(ctx, []host.UploadFile{{Name: in.File.Name, Type: in.File.Type, Data: in.File.Data}})
	if !ok {
		return Record{}, s.failure("upload resume")
	}

	in.progress("Converting to image...")
	preview := s.Pipeline.Convert(ctx, in.File)
	if preview.Error != "" {
		s.Store.ReportError(platform.RenderFailure, preview.Error, nil)
		return Record{}, fmt.Errorf("convert resume: %s", preview.Error)
	}
	defer s.Pipeline.Blobs().Revoke(preview.PreviewURL)

	in.progress("Uploading the image...")
	image, ok := s.Store.FS().Upload(ctx, []host.UploadFile{{
		Name: preview.PreviewFile.Name,
		Type: preview.PreviewFile.Type,
		Data: preview.PreviewFile.Data,
	}})
	if !ok {
		return Record{}, s.failure("upload preview")
	}

	in.progress("Preparing data...")
	rec := Record{
		ID:             s.newID(),
		CompanyName:    strings.TrimSpace(in.CompanyName),
		JobTitle:       strings.TrimSpace(in.JobTitle),
		JobDescription: strings.TrimSpace(in.JobDescription),
		ResumePath:     uploaded.Path,
		ImagePath:      image.Path,
	}
	if err := s.save(ctx, rec); err != nil {
		return Record{}, err
	}

	in.progress("Analyzing...")
	resp, ok := s.Store.AI().Feedback(ctx, uploaded.Path, Instructions(rec.JobTitle, rec.JobDescription))
	if !ok {
		return rec, s.failure("analyze resume")
	}
	feedback, err := ParseFeedback(resp.Message.ContentText())
	if err != nil {
		return rec, fmt.Errorf("analyze resume: %w", err)
	}
	rec.Feedback = feedback
	if err := s.save(ctx, rec); err != nil {
		return rec, err
	}

	in.progress("Analysis complete.")
	telemetry.Info("resumes.analyze.complete", map[string]any{"resume_id": rec.ID, "model": resp.Model})
	return rec, nil
}

func (s *Service) save(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode resume record: %w", err)
	}
	if _, ok := s.Store.KV().Set(ctx, Key(rec.ID), string(raw)); !ok {
		return s.failure("save resume")
	}
	return nil
}

// Review is a loaded record with preview URLs for its stored files. The
// caller owns the URLs and must call Release.
type Review struct {
	Record    Record
	ResumeURL string
	ImageURL  string

	blobs *pdfimg.BlobStore
}

// Content returns the bytes behind one of the review's URLs.
func (r *Review) Content(url string) ([]byte, bool) {
	data, _, ok := r.blobs.Open(url)
	return data, ok
}

// Release revokes the review's URLs. It is safe to call more than once.
func (r *Review) Release() {
	for _, url := range []string{r.ResumeURL, r.ImageURL} {
		if url != "" {
			r.blobs.Revoke(url)
		}
	}
}

// Get loads a record and exposes its resume and preview image. A file that
// cannot be read leaves its URL empty.
func (s *Service) Get(ctx context.Context, id string) (*Review, error) {
	if !s.Store.Auth().IsAuthenticated() {
		return nil, ErrNotSignedIn
	}
	raw, found, ok := s.Store.KV().Lookup(ctx, Key(id))
	if !ok {
		return nil, s.failure("load resume")
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, err
	}

	blobs := s.Pipeline.Blobs()
	review := &Review{Record: rec, blobs: blobs}
	if pdf, ok := s.Store.FS().Read(ctx, rec.ResumePath); ok {
		review.ResumeURL = blobs.Create(pdf.Data, "application/pdf")
	}
	if img, ok := s.Store.FS().Read(ctx, rec.ImagePath); ok {
		typ := img.Type
		if typ == "" {
			typ = "image/png"
		}
		review.ImageURL = blobs.Create(img.Data, typ)
	}
	return review, nil
}

// List returns every stored record. Records that fail to decode are skipped.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	if !s.Store.Auth().IsAuthenticated() {
		return nil, ErrNotSignedIn
	}
	items, ok := s.Store.KV().List(ctx, KeyPrefix+"*", true)
	if !ok {
		return nil, s.failure("list resumes")
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		rec, err := decodeRecord(item.Value)
		if err != nil {
			telemetry.Warn("resumes.list.skip", map[string]any{"key": item.Key, "error": err})
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// WipeResult counts what Wipe removed.
type WipeResult struct {
	Deleted int
	Failed  int
	Flushed bool
}

// Wipe deletes every file in the root directory and flushes the KV store.
// A file that fails to delete does not stop the rest.
func (s *Service) Wipe(ctx context.Context) (WipeResult, error) {
	if !s.Store.Auth().IsAuthenticated() {
		return WipeResult{}, ErrNotSignedIn
	}
	items, ok := s.Store.FS().ReadDir(ctx, "/")
	if !ok {
		return WipeResult{}, s.failure("list files")
	}
	var res WipeResult
	for _, item := range items {
		if s.Store.FS().Delete(ctx, item.Path) {
			res.Deleted++
		} else {
			res.Failed++
		}
	}
	if _, ok := s.Store.KV().Flush(ctx); !ok {
		return res, s.failure("flush kv")
	}
	res.Flushed = true
	telemetry.Info("resumes.wipe.complete", map[string]any{"deleted": res.Deleted, "failed": res.Failed})
	return res, nil
}

// failure reports the access layer's current error for op.
func (s *Service) failure(op string) error {
	if e := s.Store.Err(); e != nil {
		return fmt.Errorf("%s: %w", op, e)
	}
	return errors.New(op + " failed")
}
