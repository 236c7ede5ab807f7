package cli

import (
	"fmt"

	"github.com/ezenkico/deploy-commander/vectorstack/services/s3store"
	"github.com/spf13/cobra"
)

func newBackupCommand(a *app) *cobra.Command {
	var (
		volumes []string
		dir     string
		upload  bool
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive named volumes to gzip tarballs",
		Long: `Archive named volumes to <dir>/backup_<volume>_<YYYYmmdd_HHMMSS>.tar.gz
using a one-shot container that mounts each volume read-only. Stop the vector
store first for a consistent snapshot. With --upload the archives are copied
to the configured S3 bucket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := a.loadStack()
			if err != nil {
				return err
			}
			if len(volumes) == 0 {
				volumes = stack.Volumes
			}
			for _, v := range volumes {
				if !stack.HasVolume(v) {
					return fmt.Errorf("unknown volume %q", v)
				}
			}
			if !cmd.Flags().Changed("dir") {
				dir = a.cfg.Backup.Dir
			}

			var uploader *s3store.Uploader
			if upload {
				if !a.cfg.S3.Enabled() {
					return fmt.Errorf("--upload needs VECTORSTACK_S3_BUCKET")
				}
				uploader, err = s3store.NewUploader(s3store.Config{
					Endpoint:  a.cfg.S3.Endpoint,
					Region:    a.cfg.S3.Region,
					Bucket:    a.cfg.S3.Bucket,
					Prefix:    a.cfg.S3.Prefix,
					AccessKey: a.cfg.S3.AccessKey,
					SecretKey: a.cfg.S3.SecretKey,
					PathStyle: a.cfg.S3.PathStyle,
				})
				if err != nil {
					return err
				}
			}

			p, err := a.platform()
			if err != nil {
				return err
			}
			defer p.Close()

			now := a.now()
			for _, v := range volumes {
				path, err := p.Backup(cmd.Context(), a.cfg.Project, v, dir, a.cfg.Backup.Image, now)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)

				if uploader != nil {
					loc, err := uploader.Upload(cmd.Context(), a.cfg.Project, path)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), loc)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&volumes, "volume", nil, "volume to back up (default: every declared volume)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory for the archives (default from config)")
	cmd.Flags().BoolVar(&upload, "upload", false, "copy the archives to the configured S3 bucket")
	return cmd
}
