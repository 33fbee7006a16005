package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/pkg/client"
)

type UploadOptions struct {
	*RootOptions
	Meta client.UploadMeta
}

func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UploadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a proof document",
		Example: `  archivectl upload certificate.pdf --event-name "Tech Fest" --proof-type certificate \
    --event-type Competition --department CSE --academic-year 2024-25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			resp, err := opts.client().Upload(cmd.Context(), s, opts.Meta, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			return newFormatter(opts.RootOptions, cmd.OutOrStdout()).Value(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s\nproof %d, status %s\n", resp.Message, resp.ProofID, resp.Status)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&opts.Meta.EventName, "event-name", "", "event name")
	cmd.Flags().StringVar(&opts.Meta.EventType, "event-type", "", "event type")
	cmd.Flags().StringVar(&opts.Meta.Department, "department", "", "department")
	cmd.Flags().StringVar(&opts.Meta.AcademicYear, "academic-year", "", "academic year, e.g. 2024-25")
	cmd.Flags().StringVar(&opts.Meta.ProofType, "proof-type", "", "kind of proof, e.g. certificate")
	cmd.Flags().StringVar(&opts.Meta.Description, "description", "", "free text description")
	_ = cmd.MarkFlagRequired("event-name")
	_ = cmd.MarkFlagRequired("proof-type")

	return cmd
}

func NewProofsCommand(opts *RootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "proofs",
		Short: "List the proofs visible to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session()
			if err != nil {
				return err
			}
			proofs, err := opts.client().ListProofs(cmd.Context(), s, status)
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd.OutOrStdout()).Value(proofs, func(w io.Writer) error {
				rows := make([][]string, 0, len(proofs))
				for _, p := range proofs {
					rows = append(rows, []string{
						strconv.FormatUint(uint64(p.ID), 10),
						p.EventName,
						p.UploadedByName,
						string(p.Status),
						p.FileName,
						p.UploadedAt.Local().Format(time.DateTime),
					})
				}
				return Table(w, []string{"ID", "EVENT", "STUDENT", "STATUS", "FILE", "UPLOADED"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "pending, approved, rejected or all")
	return cmd
}

func NewSearchCommand(opts *RootOptions) *cobra.Command {
	var usn, status, exportPath string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search student proofs (staff and admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session()
			if err != nil {
				return err
			}
			c := opts.client()

			if exportPath != "" {
				f, err := os.Create(exportPath)
				if err != nil {
					return err
				}
				if err := c.ExportSearch(cmd.Context(), s, usn, status, f); err != nil {
					f.Close()
					os.Remove(exportPath)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", exportPath)
				return nil
			}

			results, err := c.Search(cmd.Context(), s, usn, status)
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd.OutOrStdout()).Value(results, func(w io.Writer) error {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{
						strconv.FormatUint(uint64(r.ID), 10),
						r.StudentUSN,
						r.EventName,
						string(r.Status),
						orDash(deref(r.RejectionReason)),
					})
				}
				return Table(w, []string{"ID", "STUDENT", "EVENT", "STATUS", "REASON"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&usn, "usn", "", "substring of the student identifier")
	cmd.Flags().StringVar(&status, "status", "", "pending, approved, rejected or all")
	cmd.Flags().StringVar(&exportPath, "export", "", "write an .xlsx workbook to this path instead of printing")
	return cmd
}

func NewReviewCommand(opts *RootOptions) *cobra.Command {
	var status, reason string

	cmd := &cobra.Command{
		Use:   "review <proof-id>",
		Short: "Approve or reject a proof",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := opts.session()
			if err != nil {
				return err
			}
			resp, err := opts.client().UpdateStatus(cmd.Context(), s, id, models.ProofStatus(status), reason)
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd.OutOrStdout()).Value(resp, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, resp.Message)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "approved or rejected")
	cmd.Flags().StringVar(&reason, "reason", "", "rejection reason")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <proof-id>",
		Short: "Show the review trail of a proof",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := opts.session()
			if err != nil {
				return err
			}
			reviews, err := opts.client().ProofHistory(cmd.Context(), s, id)
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd.OutOrStdout()).Value(reviews, func(w io.Writer) error {
				rows := make([][]string, 0, len(reviews))
				for _, r := range reviews {
					rows = append(rows, []string{
						r.CreatedAt.Local().Format(time.DateTime),
						string(r.FromStatus) + " -> " + string(r.ToStatus),
						strconv.FormatUint(uint64(r.ReviewedBy), 10),
						orDash(deref(r.Reason)),
					})
				}
				return Table(w, []string{"WHEN", "CHANGE", "REVIEWER", "REASON"}, rows)
			})
		},
	}
}

func NewPreviewCommand(opts *RootOptions) *cobra.Command {
	var width int
	var out string

	cmd := &cobra.Command{
		Use:   "preview <stored-file-name>",
		Short: "Download a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session()
			if err != nil {
				return err
			}
			p, err := opts.client().Preview(cmd.Context(), s, args[0], width)
			if err != nil {
				return err
			}
			defer p.Close()

			if out == "" {
				out = args[0]
				if p.FileName != "" {
					out = filepath.Base(p.FileName)
				}
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := io.Copy(f, p.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s, %d bytes)\n", out, p.Kind, n)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "resize images to this width")
	cmd.Flags().StringVarP(&out, "output", "o", "", "destination path (default: original file name)")
	return cmd
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
