package orchestrators

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	activityStore "signups/internal/adapters/storage/activity"
	"signups/internal/domain/activity"
	"signups/internal/domain/audit"
	"signups/internal/domain/profile"
)

// ObjectPutter stores a named object and returns its public path.
type ObjectPutter interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// ActivityImageStore defines the activity operations needed by the image orchestrators.
type ActivityImageStore interface {
	GetByID(ctx context.Context, id string) (activity.Activity, error)
	List(ctx context.Context, filter activityStore.ListFilter) ([]activity.Activity, error)
	UpdateImage(ctx context.Context, kind activity.Kind, id string, image activity.Image) error
}

// --- Upload ---

// UploadImageInput carries an admin upload. ActivityID is optional; when set
// the activity's image is replaced with the upload.
type UploadImageInput struct {
	Actor      *profile.Profile
	Filename   string
	Body       io.Reader
	ActivityID string
}

// UploadImageDeps holds dependencies for UploadActivityImage.
type UploadImageDeps struct {
	Objects       ObjectPutter
	ActivityStore ActivityImageStore
	Audit         AuditSaver
	Now           func() time.Time
}

// ExecuteUploadActivityImage stores an uploaded image by filename.
// PRE: Actor is an admin
// POST: Returns the storage path; the activity references it when ActivityID is set
func ExecuteUploadActivityImage(ctx context.Context, input UploadImageInput, deps UploadImageDeps) (string, error) {
	if input.Actor == nil || !input.Actor.IsAdmin {
		return "", ErrAdminRequired
	}
	var target activity.Activity
	if input.ActivityID != "" {
		a, err := deps.ActivityStore.GetByID(ctx, input.ActivityID)
		if err != nil {
			return "", err
		}
		target = a
	}

	path, err := deps.Objects.Put(ctx, input.Filename, input.Body)
	if err != nil {
		return "", err
	}
	if target.ID != "" {
		if err := deps.ActivityStore.UpdateImage(ctx, target.Kind, target.ID, activity.Image{URL: path}); err != nil {
			return "", err
		}
	}

	slog.Info("activity_event", "event", "image_uploaded", "path", path, "activity_id", input.ActivityID, "actor_id", input.Actor.ID)
	if deps.Audit != nil {
		ev := audit.NewEvent(input.Actor.ID, input.Actor.Email, audit.CategoryActivity, audit.ActionUpload, deps.Now()).
			WithDescription("Uploaded " + path)
		if target.ID != "" {
			ev = ev.WithResource(string(target.Kind), target.ID)
		}
		if err := deps.Audit.Save(ctx, ev); err != nil {
			slog.Error("audit_save_failed", "error", err, "path", path)
		}
	}
	return path, nil
}

// --- Migrate ---

// ImageFetcher downloads an external image, returning its body and file extension.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, string, error)
}

// MigrateImagesDeps holds dependencies for MigrateImages.
type MigrateImagesDeps struct {
	ActivityStore ActivityImageStore
	Objects       ObjectPutter
	Fetcher       ImageFetcher
	Concurrency   int
	DryRun        bool
}

// MigrateImagesResult summarises a migration run.
type MigrateImagesResult struct {
	Migrated int
	Skipped  int
	Failed   int
}

// ExecuteMigrateImages copies externally hosted activity images into object
// storage and points the activities at the copies. Photographer attribution
// is kept. One failed image does not stop the run.
// POST: Activities already using first-party paths are untouched
func ExecuteMigrateImages(ctx context.Context, deps MigrateImagesDeps) (MigrateImagesResult, error) {
	list, err := deps.ActivityStore.List(ctx, activityStore.ListFilter{})
	if err != nil {
		return MigrateImagesResult{}, fmt.Errorf("list activities: %w", err)
	}

	var (
		mu  sync.Mutex
		res MigrateImagesResult
	)
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(deps.Concurrency, 1))
	for _, a := range list {
		if !isExternal(a.Image.URL) {
			res.Skipped++
			continue
		}
		if deps.DryRun {
			slog.Info("image_migration", "event", "would_migrate", "activity_id", a.ID, "url", a.Image.URL)
			res.Migrated++
			continue
		}
		g.Go(func() error {
			if err := migrateOne(gctx, a, deps); err != nil {
				slog.Error("image_migration", "event", "failed", "activity_id", a.ID, "url", a.Image.URL, "error", err)
				count(&res.Failed)
				return nil
			}
			count(&res.Migrated)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	slog.Info("image_migration", "event", "done", "migrated", res.Migrated, "skipped", res.Skipped, "failed", res.Failed)
	return res, ctx.Err()
}

func migrateOne(ctx context.Context, a activity.Activity, deps MigrateImagesDeps) error {
	body, ext, err := deps.Fetcher.Fetch(ctx, a.Image.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	path, err := deps.Objects.Put(ctx, string(a.Kind)+"-"+a.ID+ext, body)
	if err != nil {
		return err
	}
	img := a.Image
	img.URL = path
	if err := deps.ActivityStore.UpdateImage(ctx, a.Kind, a.ID, img); err != nil {
		return err
	}
	slog.Info("image_migration", "event", "migrated", "activity_id", a.ID, "path", path)
	return nil
}

func isExternal(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
