package analyze

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-insight/internal/app"
	"github.com/dtnitsch/news-insight/internal/common"
	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/coordinator"
	"github.com/dtnitsch/news-insight/pkg/render"
	"github.com/dtnitsch/news-insight/pkg/splicer"
)

func open(c *cli.Context) *app.App {
	a, err := app.FromCLI(c)
	if err != nil {
		app.Logger(c).Error("failed to initialize", "error", err)
		os.Exit(2)
	}
	return a
}

func urlArg(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", fmt.Errorf("no URL provided")
	}
	return common.ValidateURL(c.Args().First())
}

// AnalyzeAction runs the full analysis on a page, or a single analysis when
// --kind is given.
func AnalyzeAction(c *cli.Context) error {
	kind := models.AnalysisKind(c.String("kind"))
	if kind == "" && c.NArg() == 0 {
		return fmt.Errorf("no URL provided")
	}

	a := open(c)
	defer a.Close()

	var page *models.PageContent
	if c.NArg() > 0 {
		u, err := urlArg(c)
		if err != nil {
			return err
		}
		if page, _, err = a.LoadPage(c.Context, u); err != nil {
			return err
		}
	}

	r := render.New()
	if kind == "" {
		a.Logger.Info("Analyzing page", "url", page.URL, "backend", a.Gateway.Backend())
		result, err := a.Coordinator.RunAnalysis(c.Context, page)
		if err != nil {
			return err
		}
		return common.Write(os.Stdout, c.String("format"), result, func() string {
			return r.Report(page, *result)
		})
	}

	text := c.String("text")
	if kind == models.KindWebpageQA {
		text = c.String("question")
	}
	req := models.AnalysisRequest{
		Kind:      kind,
		RequestID: uuid.NewString(),
		Page:      page,
		Text:      text,
		ImageURL:  c.String("image"),
	}
	a.Logger.Info("Running analysis", "kind", kind, "request_id", req.RequestID)
	out, err := a.Coordinator.Run(c.Context, req)
	if err != nil {
		return err
	}
	return common.Write(os.Stdout, c.String("format"), out, htmlFor(r, out))
}

// htmlFor picks the HTML view of a single-analysis result.
func htmlFor(r *render.Renderer, out any) func() string {
	switch v := out.(type) {
	case string:
		return func() string { return r.Summary(v) }
	case models.BiasReport:
		return func() string { return r.Biases(v) }
	case models.ClaimReport:
		return func() string { return r.Claims(v) }
	case []models.ProofreadSegment:
		return func() string { return r.Sanitize(splicer.RenderSegments(v)) }
	case *coordinator.RewriteResult:
		return func() string { return r.Sanitize(v.HTML) }
	case *coordinator.WebpageAnalysis:
		return func() string { return r.Summary(v.Analysis) }
	case *coordinator.Answer:
		return func() string { return r.Summary(v.Answer) }
	case *coordinator.ImageAnalysis:
		return func() string { return r.Summary(v.Description) }
	}
	return nil
}

// HighlightAction annotates every qualifying paragraph of a page and prints
// the annotated document.
func HighlightAction(c *cli.Context) error {
	u, err := urlArg(c)
	if err != nil {
		return err
	}
	a := open(c)
	defer a.Close()

	_, body, err := a.LoadPage(c.Context, u)
	if err != nil {
		return err
	}
	doc, err := a.Coordinator.AnnotateDocument(c.Context, body)
	if err != nil {
		return err
	}
	a.Logger.Info("Highlighted page", "url", u, "paragraphs", doc.Paragraphs, "markers", doc.Markers)

	r := render.New()
	return common.Write(os.Stdout, c.String("format"), doc, func() string { return r.Sanitize(doc.HTML) })
}

// CalendarAction lists dated events mentioned on a page.
func CalendarAction(c *cli.Context) error {
	u, err := urlArg(c)
	if err != nil {
		return err
	}
	a := open(c)
	defer a.Close()

	page, _, err := a.LoadPage(c.Context, u)
	if err != nil {
		return err
	}
	result, err := a.Coordinator.ExtractCalendar(c.Context, page)
	if err != nil {
		return err
	}
	return common.Write(os.Stdout, c.String("format"), result, nil)
}

// ProofreadAction proofreads --text, the arguments, or stdin.
func ProofreadAction(c *cli.Context) error {
	text, err := inputText(c)
	if err != nil {
		return err
	}
	a := open(c)
	defer a.Close()

	segments, err := a.Coordinator.RunProofreader(c.Context, text)
	if err != nil {
		return err
	}
	r := render.New()
	return common.Write(os.Stdout, c.String("format"), segments, func() string {
		return r.Sanitize(splicer.RenderSegments(segments))
	})
}

// RewriteAction rewrites --text, the arguments, or stdin in neutral
// language.
func RewriteAction(c *cli.Context) error {
	text, err := inputText(c)
	if err != nil {
		return err
	}
	a := open(c)
	defer a.Close()

	result, err := a.Coordinator.Rewrite(c.Context, text)
	if err != nil {
		return err
	}
	r := render.New()
	return common.Write(os.Stdout, c.String("format"), result, func() string { return r.Sanitize(result.HTML) })
}

func inputText(c *cli.Context) (string, error) {
	if t := c.String("text"); t != "" {
		return t, nil
	}
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("no text provided (use --text, arguments or stdin)")
	}
	return string(data), nil
}
