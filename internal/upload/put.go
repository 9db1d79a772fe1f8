package upload

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bendsql/bendsql-go/apiclient"
	"github.com/bendsql/bendsql-go/internal/dberrors"
	"github.com/bendsql/bendsql-go/internal/logger"
	"github.com/bendsql/bendsql-go/stage"
)

// PutGlob expands localGlob and uploads every match to dest, one Job per
// file, driven by a Scheduler sized by workerCount and throttled to
// ratePerSec new uploads admitted per second. It's the implementation
// behind the REPL's "PUT <local-glob> <stage>" command.
func PutGlob(ctx context.Context, client *apiclient.Client, localGlob string, dest stage.Location, workerCount int, ratePerSec float64, log *logger.Logger) []Result {
	matches, err := filepath.Glob(localGlob)
	if err != nil || len(matches) == 0 {
		return []Result{{
			Job: Job{LocalPath: localGlob},
			Err: dberrors.Wrap(dberrors.BadArgument, err, "no local files match %q", localGlob),
		}}
	}

	jobs := make([]Job, 0, len(matches))
	for _, path := range matches {
		jobs = append(jobs, Job{
			LocalPath: path,
			Upload: func(ctx context.Context, localPath string) error {
				return uploadOne(ctx, client, dest, localPath)
			},
		})
	}

	s := NewScheduler(workerCount, ratePerSec, log)
	return s.Run(ctx, jobs)
}

func uploadOne(ctx context.Context, client *apiclient.Client, dest stage.Location, localPath string) error {
	f, err := os.Open(localPath) // #nosec G304 -- localPath comes from a caller-controlled glob expansion
	if err != nil {
		return dberrors.Wrap(dberrors.IO, err, "open %s", localPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return dberrors.Wrap(dberrors.IO, err, "stat %s", localPath)
	}

	if err := stage.Upload(ctx, client, dest, f, info.Size(), filepath.Base(localPath)); err != nil {
		return err
	}
	client.Metrics.IncrementFilesUploaded()
	return nil
}
