package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPreviewCommand(rt *Runtime) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "preview <pdf>",
		Short: "Render the first page of a PDF to PNG",
		Long: `Render the first page of a PDF to a PNG at twice its natural size.

Examples:
  resumind preview resume.pdf
  resumind preview resume.pdf -o /tmp/first-page.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readPDF(args[0])
			if err != nil {
				return err
			}
			pipeline, release := rt.pipeline()
			defer release()

			res := pipeline.Convert(cmd.Context(), file)
			if res.Error != "" {
				return errors.New(res.Error)
			}
			defer pipeline.Blobs().Revoke(res.PreviewURL)

			if output == "" {
				output = filepath.Join(filepath.Dir(args[0]), res.PreviewFile.Name)
			}
			if err := os.WriteFile(output, res.PreviewFile.Data, 0o644); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(rt.Out, "Wrote %s (%d bytes)\n", output, res.PreviewFile.Size())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG path (default: alongside the PDF)")
	return cmd
}

func newSignInCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "signin",
		Short: "Sign in to the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.store.Auth().SignIn(cmd.Context()) {
				return s.storeError("sign in failed")
			}
			if err := s.saveToken(); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			user, _ := s.store.Auth().User()
			color.New(color.FgGreen).Fprintf(rt.Out, "Signed in as %s\n", displayName(user.Username, user.Email))
			return nil
		},
	}
}

func newSignOutCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ok := s.store.Auth().SignOut(cmd.Context())
			if err := s.saveToken(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			if !ok {
				return s.storeError("sign out failed")
			}
			fmt.Fprintln(rt.Out, "Signed out")
			return nil
		},
	}
}

func newWhoAmICommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.requireUser()
			if err != nil {
				if e := s.store.Err(); e != nil {
					return e
				}
				color.New(color.FgYellow).Fprintln(rt.Out, "Not signed in")
				return nil
			}
			cyan := color.New(color.FgCyan)
			cyan.Fprintln(rt.Out, "Identity")
			fmt.Fprintf(rt.Out, "  ID:       %s\n", user.ID)
			fmt.Fprintf(rt.Out, "  Username: %s\n", user.Username)
			if user.Name != "" {
				fmt.Fprintf(rt.Out, "  Name:     %s\n", user.Name)
			}
			if user.Email != "" {
				fmt.Fprintf(rt.Out, "  Email:    %s\n", user.Email)
			}
			return nil
		},
	}
}

// storeError prefers the error the access layer recorded.
func (s *session) storeError(fallback string) error {
	if e := s.store.Err(); e != nil {
		return e
	}
	return errors.New(fallback)
}

func displayName(username, email string) string {
	switch {
	case username != "" && email != "":
		return fmt.Sprintf("%s <%s>", username, email)
	case username != "":
		return username
	default:
		return email
	}
}
