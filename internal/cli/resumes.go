package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"resumind/internal/resumes"
)

// withService connects, requires a session and runs fn with a resume service.
func (rt *Runtime) withService(cmd *cobra.Command, fn func(*session, *resumes.Service) error) error {
	s, err := rt.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	if _, err := s.requireUser(); err != nil {
		return err
	}
	pipeline, release := rt.pipeline()
	defer release()
	return fn(s, resumes.NewService(s.store, pipeline))
}

func newAnalyzeCommand(rt *Runtime) *cobra.Command {
	var company, title, description string
	cmd := &cobra.Command{
		Use:   "analyze <pdf>",
		Short: "Upload a resume and get feedback for a job",
		Long: `Upload a resume, render its preview, and ask the host's model to score it
against the job.

Examples:
  resumind analyze resume.pdf --company Acme --title "Backend Engineer"
  resumind analyze resume.pdf --company Acme --title SRE --job-description "$(cat jd.txt)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readPDF(args[0])
			if err != nil {
				return err
			}
			return rt.withService(cmd, func(s *session, svc *resumes.Service) error {
				cyan := color.New(color.FgCyan)
				rec, err := svc.Analyze(cmd.Context(), resumes.AnalyzeInput{
					File:           file,
					CompanyName:    company,
					JobTitle:       title,
					JobDescription: description,
					Progress: func(status string) {
						cyan.Fprintln(rt.Out, status)
					},
				})
				if err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(rt.Out, "Analysis complete: %s\n", rec.ID)
				return printFeedback(rt, rec.Feedback)
			})
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company name")
	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringVar(&description, "job-description", "", "job description text")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newListCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List analyzed resumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withService(cmd, func(s *session, svc *resumes.Service) error {
				records, err := svc.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Fprintln(rt.Out, "No resumes yet")
					return nil
				}
				w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCOMPANY\tTITLE\tSCORE")
				for _, rec := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rec.ID, rec.CompanyName, rec.JobTitle, overallScore(rec.Feedback))
				}
				return w.Flush()
			})
		},
	}
}

func newReviewCommand(rt *Runtime) *cobra.Command {
	var saveDir string
	cmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Show the feedback for one resume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withService(cmd, func(s *session, svc *resumes.Service) error {
				review, err := svc.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				defer review.Release()

				rec := review.Record
				cyan := color.New(color.FgCyan)
				cyan.Fprintf(rt.Out, "%s at %s\n", rec.JobTitle, rec.CompanyName)
				fmt.Fprintf(rt.Out, "  Resume:  %s\n", rec.ResumePath)
				fmt.Fprintf(rt.Out, "  Preview: %s\n", rec.ImagePath)

				if saveDir != "" {
					if err := saveReview(rt, review, saveDir); err != nil {
						return err
					}
				}
				return printFeedback(rt, rec.Feedback)
			})
		},
	}
	cmd.Flags().StringVar(&saveDir, "save-dir", "", "directory to write the resume PDF and preview PNG to")
	return cmd
}

func newWipeCommand(rt *Runtime) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every stored file and record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("wipe deletes all files and records; pass --yes to confirm")
			}
			return rt.withService(cmd, func(s *session, svc *resumes.Service) error {
				res, err := svc.Wipe(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.Out, "Deleted %d files\n", res.Deleted)
				if res.Failed > 0 {
					color.New(color.FgYellow).Fprintf(rt.Out, "Failed to delete %d files\n", res.Failed)
				}
				if res.Flushed {
					fmt.Fprintln(rt.Out, "Cleared all records")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func saveReview(rt *Runtime, review *resumes.Review, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := []struct {
		url  string
		path string
	}{
		{review.ResumeURL, filepath.Join(dir, filepath.Base(review.Record.ResumePath))},
		{review.ImageURL, filepath.Join(dir, filepath.Base(review.Record.ImagePath))},
	}
	for _, f := range files {
		data, ok := review.Content(f.url)
		if !ok {
			color.New(color.FgYellow).Fprintf(rt.Out, "  Skipped %s (unavailable)\n", f.path)
			continue
		}
		if err := os.WriteFile(f.path, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(rt.Out, "  Saved %s\n", f.path)
	}
	return nil
}

func printFeedback(rt *Runtime, feedback json.RawMessage) error {
	if len(feedback) == 0 {
		color.New(color.FgYellow).Fprintln(rt.Out, "No feedback stored")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, feedback, "", "  "); err != nil {
		return fmt.Errorf("format feedback: %w", err)
	}
	buf.WriteByte('\n')
	_, err := rt.Out.Write(buf.Bytes())
	return err
}

// overallScore reads feedback.overallScore, or "-" when it is absent.
func overallScore(feedback json.RawMessage) string {
	var v struct {
		OverallScore *float64 `json:"overallScore"`
	}
	if len(feedback) == 0 || json.Unmarshal(feedback, &v) != nil || v.OverallScore == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v.OverallScore)
}
