package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-assets/pkg/simpleassets"
)

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

// readPayload loads a file and derives its MIME type from the extension.
func readPayload(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		return nil, "", fmt.Errorf("cannot determine MIME type of %s", path)
	}
	return data, mimeType, nil
}

func newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <tenant-id>",
		Short: "Provision a tenant's storage scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseID(args[0], "tenant id")
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			return svc.EnsureTenantScope(cmd.Context(), tenant)
		},
	}
}

func newAddCmd() *cobra.Command {
	var uploaderID int64

	cmd := &cobra.Command{
		Use:   "add <tenant-id> <name> <file>",
		Short: "Add a new asset from an image file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseID(args[0], "tenant id")
			if err != nil {
				return err
			}
			data, mimeType, err := readPayload(args[2])
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			asset, err := svc.Add(cmd.Context(), simpleassets.UploadRequest{
				TenantID:   tenant,
				Name:       args[1],
				UploaderID: uploaderID,
				Data:       data,
				MIMEType:   mimeType,
			})
			if err != nil {
				return err
			}
			fmt.Printf("added %q -> %s\n", asset.Name, asset.ContentRef)
			return nil
		},
	}
	cmd.Flags().Int64VarP(&uploaderID, "uploader", "u", 0, "uploader user id")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <tenant-id> <name>",
		Short: "Delete an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseID(args[0], "tenant id")
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			return svc.Delete(cmd.Context(), tenant, args[1])
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <tenant-id> <old-name> <new-name>",
		Short: "Rename an asset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseID(args[0], "tenant id")
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			return svc.Rename(cmd.Context(), tenant, args[1], args[2])
		},
	}
}

func newReplaceCmd() *cobra.Command {
	var uploaderID int64

	cmd := &cobra.Command{
		Use:   "replace <tenant-id> <name> <file>",
		Short: "Replace an asset's image",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseID(args[0], "tenant id")
			if err != nil {
				return err
			}
			data, mimeType, err := readPayload(args[2])
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			asset, err := svc.Replace(cmd.Context(), simpleassets.UploadRequest{
				TenantID:   tenant,
				Name:       args[1],
				UploaderID: uploaderID,
				Data:       data,
				MIMEType:   mimeType,
			})
			if err != nil {
				return err
			}
			fmt.Printf("replaced %q -> %s\n", asset.Name, asset.ContentRef)
			return nil
		},
	}
	cmd.Flags().Int64VarP(&uploaderID, "uploader", "u", 0, "uploader user id")
	return cmd
}

func newListCmd() *cobra.Command {
	var userID int64
	var keyword string

	cmd := &cobra.Command{
		Use:   "ls <tenant-id>",
		Short: "List a tenant's assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseID(args[0], "tenant id")
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := svc.List(cmd.Context(), tenant, userID, keyword)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tUPLOADER\tCREATED\tYOURS\tTOTAL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\n",
					e.Name, e.UploaderID, e.CreatedAt.Format("2006-01-02"),
					e.UserUseCount, e.TotalUseCount)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "user id for per-user counts")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "filter names containing keyword")
	return cmd
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <tenant-id> <user-id> <name>",
		Short: "Record one use of an asset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseID(args[0], "tenant id")
			if err != nil {
				return err
			}
			user, err := parseID(args[1], "user id")
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			return svc.RecordUse(cmd.Context(), tenant, user, args[2])
		},
	}
}

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <tenant-id> <name>",
		Short: "Print the storage location of an asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := parseID(args[0], "tenant id")
			if err != nil {
				return err
			}
			svc, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			loc, err := svc.Locate(cmd.Context(), tenant, args[1])
			if err != nil {
				return err
			}
			fmt.Println(loc)
			return nil
		},
	}
}
