package publisher

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// attachImages downloads images and attaches them to the form's file inputs in order.
// Images beyond the number of inputs are dropped. The returned function removes downloaded files.
func (p *Publisher) attachImages(ctx context.Context, jobID string, browser Browser, urls []string) func() {
	if len(urls) == 0 {
		return func() {}
	}

	selector := p.cfg.Site.Selectors.FileInput
	inputs, err := browser.FileInputs(ctx, selector)
	if err != nil {
		p.deps.JobLog.Append(jobID, fmt.Sprintf("can't find photo fields: %v", err))
		return func() {}
	}

	kept := urls
	if len(urls) > inputs {
		kept = urls[:inputs]
		for _, dropped := range urls[inputs:] {
			p.deps.JobLog.Append(jobID, fmt.Sprintf("no photo field left for image %s", dropped))
		}
	}

	paths := p.downloadImages(ctx, jobID, kept)
	cleanup := func() {
		for _, file := range paths {
			if file == "" {
				continue
			}
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				p.logger.Warn().Err(err).Str("path", file).Msg("can't remove downloaded image")
			}
		}
	}

	for ix, file := range paths {
		if file == "" {
			continue
		}

		if err := browser.Upload(ctx, selector, ix, file); err != nil {
			p.deps.JobLog.Append(jobID, fmt.Sprintf("can't attach image %s: %v", kept[ix], err))
			continue
		}
		p.deps.JobLog.Append(jobID, fmt.Sprintf("image attached: %s", kept[ix]))
	}

	return cleanup
}

// downloadImages downloads urls concurrently. Failed downloads leave an empty path.
func (p *Publisher) downloadImages(ctx context.Context, jobID string, urls []string) []string {
	paths := make([]string, len(urls))

	var eg errgroup.Group
	eg.SetLimit(max(1, p.cfg.ImageWorkers))

	for ix, imageURL := range urls {
		eg.Go(func() error {
			file, err := p.downloadImage(ctx, imageURL)
			if err != nil {
				p.deps.JobLog.Append(jobID, fmt.Sprintf("can't download image %s: %v", imageURL, err))
				return nil
			}
			paths[ix] = file

			return nil
		})
	}

	_ = eg.Wait()

	return paths
}

func (p *Publisher) downloadImage(ctx context.Context, imageURL string) (string, error) {
	body, err := p.deps.Fetcher.FetchFile(ctx, imageURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	file, err := os.CreateTemp(p.cfg.TempDir, "listing-*"+imageExtension(imageURL))
	if err != nil {
		return "", fmt.Errorf("can't create image file: %w", err)
	}

	_, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(file.Name())
		if copyErr != nil {
			return "", fmt.Errorf("can't save image: %w", copyErr)
		}
		return "", fmt.Errorf("can't save image: %w", closeErr)
	}

	return file.Name(), nil
}

func imageExtension(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return ".jpg"
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	if !imageExtensions[ext] {
		return ".jpg"
	}

	return ext
}
