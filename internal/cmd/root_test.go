package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetVersionInfo(t *testing.T) {
	// Save original values
	origVersion := versionInfo.Version
	origCommit := versionInfo.Commit
	origBuildDate := versionInfo.BuildDate
	defer func() {
		versionInfo.Version = origVersion
		versionInfo.Commit = origCommit
		versionInfo.BuildDate = origBuildDate
	}()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
	}{
		{
			name:      "set all values",
			version:   "1.0.0",
			commit:    "abc123",
			buildDate: "2026-08-30",
		},
		{
			name:      "set dev version",
			version:   "dev",
			commit:    "HEAD",
			buildDate: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersionInfo(tt.version, tt.commit, tt.buildDate)

			assert.Equal(t, tt.version, versionInfo.Version)
			assert.Equal(t, tt.commit, versionInfo.Commit)
			assert.Equal(t, tt.buildDate, versionInfo.BuildDate)
		})
	}
}

func TestCopyJob_FlagValidation(t *testing.T) {
	restore := func() {
		copyJobPath = ""
		copySourceBucket = ""
		copySourceKey = ""
		copyDestBucket = ""
	}
	restore()
	defer restore()

	t.Run("flags incomplete", func(t *testing.T) {
		restore()
		copySourceBucket = "raw-logs"

		_, err := copyJob()
		assert.Error(t, err)
	})

	t.Run("flags complete", func(t *testing.T) {
		restore()
		copySourceBucket = "raw-logs"
		copySourceKey = "2024/01/01.log"
		copyDestBucket = "replica"

		job, err := copyJob()
		assert.NoError(t, err)
		assert.Equal(t, "raw-logs", job.Source.Bucket)
		assert.Equal(t, "replica", job.Destination.Bucket)
		// Defaults applied for replication settings.
		assert.Equal(t, 3, job.Replication.MaxRetries)
	})

	t.Run("job excludes flags", func(t *testing.T) {
		restore()
		copyJobPath = "job.yaml"
		copySourceBucket = "raw-logs"

		_, err := copyJob()
		assert.Error(t, err)
	})
}
