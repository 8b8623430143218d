// Package artifacts captures a screenshot and the page HTML when a scenario
// fails, and stores them locally or in an S3 bucket.
package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/lcm-e2e/internal/config"
	"github.com/kuitang/lcm-e2e/internal/errs"
	"github.com/kuitang/lcm-e2e/internal/obs"
	"github.com/kuitang/lcm-e2e/internal/s3client"
)

const (
	screenshotName = "screenshot.png"
	htmlName       = "page.html"
	timestampFmt   = "20060102T150405Z"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Sink stores one artifact and returns where it went.
type Sink interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// DirSink writes artifacts under a local directory.
type DirSink struct {
	Dir string
}

func (d DirSink) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	path := filepath.Join(d.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", errs.Wrap(errs.Internal, "create artifact dir", err)
	}
	if err := os.WriteFile(path, body, 0o640); err != nil {
		return "", errs.Wrap(errs.Internal, "write artifact", err)
	}
	return path, nil
}

// BucketSink uploads artifacts to S3.
type BucketSink struct {
	Client *s3client.Client
}

func (b BucketSink) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if err := b.Client.PutObject(ctx, key, body, contentType); err != nil {
		return "", errs.Wrap(errs.Unavailable, "upload artifact", err)
	}
	return b.Client.Location(key), nil
}

// Snapshotter is the part of a page that can be captured.
// playwright.Page satisfies it.
type Snapshotter interface {
	Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error)
	Content() (string, error)
}

// Collector names and stores failure artifacts for one suite run.
type Collector struct {
	sink  Sink
	runID string
	now   func() time.Time
}

func NewCollector(sink Sink) *Collector {
	return &Collector{sink: sink, runID: uuid.NewString()[:8], now: time.Now}
}

// FromConfig uploads to cfg.ArtifactsBucket when set and writes to
// cfg.ArtifactsDir otherwise.
func FromConfig(ctx context.Context, cfg *config.Config) (*Collector, error) {
	if cfg.ArtifactsBucket == "" {
		return NewCollector(DirSink{Dir: cfg.ArtifactsDir}), nil
	}
	client, err := s3client.New(ctx, s3client.Config{
		Endpoint:        cfg.AWSEndpointS3,
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		BucketName:      cfg.ArtifactsBucket,
		UsePathStyle:    cfg.AWSEndpointS3 != "",
	})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "artifact bucket", err)
	}
	return NewCollector(BucketSink{Client: client}), nil
}

// Prefix is the key prefix for scenario's artifacts.
func (c *Collector) Prefix(scenario string) string {
	name := strings.Trim(unsafeKeyChars.ReplaceAllString(scenario, "_"), "_.")
	if name == "" {
		name = "scenario"
	}
	return c.now().UTC().Format(timestampFmt) + "-" + c.runID + "/" + name
}

// Capture stores a full-page screenshot and the HTML of page. Each half is
// attempted even if the other fails; the locations that were written are
// returned alongside the first error.
func (c *Collector) Capture(ctx context.Context, scenario string, page Snapshotter) ([]string, error) {
	prefix := c.Prefix(scenario)
	log := obs.From(ctx).With("prefix", prefix)
	var (
		locations []string
		firstErr  error
	)
	keep := func(loc string, err error) {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		locations = append(locations, loc)
	}

	if shot, err := page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(true)}); err != nil {
		keep("", errs.Wrap(errs.Interaction, "take screenshot", err))
	} else {
		keep(c.sink.Put(ctx, prefix+"/"+screenshotName, shot, "image/png"))
	}

	if html, err := page.Content(); err != nil {
		keep("", errs.Wrap(errs.Interaction, "read page content", err))
	} else {
		keep(c.sink.Put(ctx, prefix+"/"+htmlName, []byte(html), "text/html; charset=utf-8"))
	}

	if firstErr != nil {
		log.Warn("artifact capture incomplete", "saved", len(locations), "error", firstErr)
	} else {
		log.Info("artifacts saved", "locations", locations)
	}
	return locations, firstErr
}
