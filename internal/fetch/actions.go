package fetch

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/news-insight/internal/app"
	"github.com/dtnitsch/news-insight/internal/common"
	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/render"
)

// Result is the outcome for one URL.
type Result struct {
	URL   string              `json:"url" yaml:"url"`
	Page  *models.PageContent `json:"page,omitempty" yaml:"page,omitempty"`
	Error string              `json:"error,omitempty" yaml:"error,omitempty"`
}

// ExtractAction fetches every URL argument concurrently and prints the
// extracted page content.
func ExtractAction(c *cli.Context) error {
	if c.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No URLs provided")
		fmt.Fprintln(os.Stderr, `Usage: news-insight extract "https://example.com/article" ...`)
		os.Exit(1)
	}

	urls := make([]string, 0, c.NArg())
	for _, raw := range c.Args().Slice() {
		u, err := common.ValidateURL(raw)
		if err != nil {
			return err
		}
		urls = append(urls, u)
	}

	a, err := app.FromCLI(c)
	if err != nil {
		app.Logger(c).Error("failed to initialize", "error", err)
		os.Exit(2)
	}
	defer a.Close()

	results := make([]Result, len(urls))
	var g errgroup.Group
	g.SetLimit(max(c.Int("workers"), 1))
	var mu sync.Mutex
	failed := 0
	for i, u := range urls {
		g.Go(func() error {
			a.Logger.Info("Extracting", "url", u)
			page, _, err := a.LoadPage(c.Context, u)
			results[i] = Result{URL: u, Page: page}
			if err != nil {
				a.Logger.Warn("Extraction failed", "url", u, "error", err)
				results[i].Error = err.Error()
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	r := render.New()
	err = common.Write(os.Stdout, c.String("format"), results, func() string {
		var b strings.Builder
		for _, res := range results {
			if res.Page == nil {
				continue
			}
			b.WriteString(r.Article(res.Page))
		}
		return b.String()
	})
	if err != nil {
		return err
	}
	if failed == len(urls) {
		return fmt.Errorf("all %d URL(s) failed", failed)
	}
	return nil
}
