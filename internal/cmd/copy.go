package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lakeshift/relay/internal/config"
	"github.com/lakeshift/relay/internal/observability"
	"github.com/lakeshift/relay/pkg/manifest"
	"github.com/lakeshift/relay/pkg/replicate"
)

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Replicate one object and exit",
	Long: `Replicate a single object from the source store to the destination
bucket. The object is named either by flags or by a job manifest.

The result record is printed as JSON. Exit status is zero for success
and skip outcomes, non-zero for failures.

Examples:
  relay copy --source-bucket raw-logs --source-key 2024/01/01.log --destination-bucket replica
  relay copy --job job.yaml`,
	RunE: runCopy,
}

var (
	copyJobPath      string
	copySourceBucket string
	copySourceKey    string
	copyDestBucket   string
)

func init() {
	rootCmd.AddCommand(copyCmd)

	copyCmd.Flags().StringVarP(&copyJobPath, "job", "j", "", "Path to job manifest")
	copyCmd.Flags().StringVar(&copySourceBucket, "source-bucket", "", "Source bucket")
	copyCmd.Flags().StringVar(&copySourceKey, "source-key", "", "Source object key")
	copyCmd.Flags().StringVar(&copyDestBucket, "destination-bucket", "", "Destination bucket")
}

func runCopy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := observability.CLILogger(verbose)
	defer func() { _ = log.Sync() }()

	job, err := copyJob()
	if err != nil {
		return err
	}

	src, err := newStoreProvider(ctx, config.StoreConfig{
		Region:         job.Source.Region,
		Endpoint:       job.Source.Endpoint,
		Profile:        job.Source.Profile,
		ForcePathStyle: job.Source.ForcePathStyle,
	})
	if err != nil {
		return fmt.Errorf("source store: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := newStoreProvider(ctx, config.StoreConfig{
		Region:         job.Destination.Region,
		Endpoint:       job.Destination.Endpoint,
		Profile:        job.Destination.Profile,
		ForcePathStyle: job.Destination.ForcePathStyle,
	})
	if err != nil {
		return fmt.Errorf("destination store: %w", err)
	}
	defer func() { _ = dst.Close() }()

	engine, err := replicate.New(src, dst, replicate.Config{
		DestinationBucket: job.Destination.Bucket,
		MaxRetries:        job.Replication.MaxRetries,
		RetryBaseDelay:    job.Replication.RetryBaseDelay,
		UploadTimeout:     job.Replication.UploadTimeout,
		OnCheckError:      replicate.OnCheckError(job.Replication.OnCheckError),
	}, log)
	if err != nil {
		return err
	}

	res, err := engine.Replicate(ctx, job.Source.Bucket, job.Source.Key)
	if err != nil {
		res = replicate.Failure(job.Source.Bucket+"/"+job.Source.Key, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(res); encErr != nil {
		return encErr
	}

	if res.Status == replicate.StatusFailure {
		log.Error("replication failed",
			zap.String("error_kind", res.ErrorKind),
			zap.String("message", res.Message))
		return fmt.Errorf("replication failed: %s", res.Message)
	}
	return nil
}

// copyJob resolves the job description from the manifest or from flags.
func copyJob() (*manifest.Manifest, error) {
	if copyJobPath != "" {
		if copySourceBucket != "" || copySourceKey != "" || copyDestBucket != "" {
			return nil, errors.New("--job cannot be combined with --source-bucket/--source-key/--destination-bucket")
		}
		return manifest.Load(copyJobPath)
	}

	if copySourceBucket == "" || copySourceKey == "" || copyDestBucket == "" {
		return nil, errors.New("either --job or all of --source-bucket, --source-key, --destination-bucket are required")
	}

	m := &manifest.Manifest{
		Version:     manifest.Version,
		Source:      manifest.SourceConfig{Bucket: copySourceBucket, Key: copySourceKey},
		Destination: manifest.DestinationConfig{Bucket: copyDestBucket},
	}
	m.ApplyDefaults()
	return m, nil
}
