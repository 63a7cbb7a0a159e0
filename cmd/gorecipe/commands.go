package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/hyperifyio/gorecipe/internal/app"
	"github.com/hyperifyio/gorecipe/internal/cache"
	"github.com/hyperifyio/gorecipe/internal/ingredient"
	"github.com/hyperifyio/gorecipe/internal/recipe"
	"github.com/hyperifyio/gorecipe/internal/render"
	"github.com/hyperifyio/gorecipe/internal/server"
)

func extractCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "extract the recipe behind a URL",
		ArgsUsage: "URL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: render.FormatJSON, Usage: "json, markdown or pdf"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (pdf defaults to <slug>.pdf)"},
			&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout for this extraction"},
			&cli.BoolFlag{Name: "parse-ingredients", Usage: "also split ingredient lines into quantity, unit and name"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("extract needs exactly one URL", exitUsage)
			}
			format, err := render.ParseFormat(c.String("format"))
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			cfg := st.cfg
			if c.IsSet("timeout") {
				cfg.RequestTimeout = c.Duration("timeout")
				if err := app.ValidateConfig(cfg); err != nil {
					return cli.Exit(err.Error(), exitUsage)
				}
			}
			a, err := st.newApp(c.Context, cfg)
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			defer a.Close()

			r, err := a.Extract(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			var parsed []ingredient.Parsed
			if c.Bool("parse-ingredients") {
				parsed = parseLines(r.Ingredients)
			}
			return writeRecipe(st.stdout, r, parsed, format, c.String("out"))
		},
	}
}

// parsedRecipe is the JSON shape of extract --parse-ingredients.
type parsedRecipe struct {
	*recipe.ExternalRecipe
	ParsedIngredients []ingredient.Parsed `json:"parsed_ingredients"`
}

func parseLines(lines []string) []ingredient.Parsed {
	out := make([]ingredient.Parsed, 0, len(lines))
	for _, line := range lines {
		if p, ok := ingredient.Parse(line, ingredient.DefaultUnits); ok {
			out = append(out, p)
		}
	}
	return out
}

func writeRecipe(stdout io.Writer, r *recipe.ExternalRecipe, parsed []ingredient.Parsed, format, out string) error {
	if format == render.FormatPDF {
		if out == "" {
			out = render.Slug(r.Name) + render.Extension(format)
		}
		if parsed != nil {
			log.Warn().Msg("parsed ingredients are not included in PDF output")
		}
		if err := render.PDF(r, out); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("path", out).Msg("pdf written")
		return nil
	}

	w := stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	switch format {
	case render.FormatMarkdown:
		if _, err := io.WriteString(w, render.Markdown(r)); err != nil {
			return err
		}
		if parsed != nil {
			_, err := fmt.Fprintf(w, "\n%s\n", ingredientTable(parsed))
			return err
		}
		return nil
	default:
		if parsed == nil {
			return render.JSON(w, r)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(parsedRecipe{ExternalRecipe: r, ParsedIngredients: parsed})
	}
}

func sourcesCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "list the enabled recipe sources in match order",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			a, err := st.newApp(c.Context, st.cfg)
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			defer a.Close()
			sources := a.Sources()
			if c.Bool("json") {
				enc := json.NewEncoder(st.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sources)
			}
			_, err = fmt.Fprintln(st.stdout, sourcesTable(sources))
			return err
		},
	}
}

func sourcesTable(sources []app.SourceInfo) string {
	var rows [][]string
	for i, s := range sources {
		for j, rule := range s.Rules {
			pos, name := "", ""
			if j == 0 {
				pos, name = strconv.Itoa(i+1), s.Name
			}
			rows = append(rows, []string{pos, name, rule})
		}
	}
	return renderTable([]string{"#", "Source", "Rule"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft})
}

func ingredientsCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "ingredients",
		Usage:     "parse ingredient text (arguments or stdin)",
		ArgsUsage: "[TEXT]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
			&cli.BoolFlag{Name: "html", Usage: "treat the input as HTML (tables, lists, then visible text)"},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(text) == "" {
				b, err := io.ReadAll(st.stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}
			var parsed []ingredient.Parsed
			if c.Bool("html") {
				var err error
				if parsed, err = ingredient.ParseHTML(text, ingredient.DefaultUnits); err != nil {
					return cli.Exit(err.Error(), exitUsage)
				}
			} else {
				parsed = ingredient.ParseText(text, ingredient.DefaultUnits)
			}
			if len(parsed) == 0 {
				return cli.Exit("no ingredients given", exitUsage)
			}
			if c.Bool("json") {
				enc := json.NewEncoder(st.stdout)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(parsed)
			}
			_, err := fmt.Fprintln(st.stdout, ingredientTable(parsed))
			return err
		},
	}
}

func ingredientTable(parsed []ingredient.Parsed) string {
	rows := make([][]string, 0, len(parsed))
	for _, p := range parsed {
		qty := ""
		if p.Quantity != nil {
			qty = strconv.FormatFloat(*p.Quantity, 'f', -1, 64)
		}
		rows = append(rows, []string{qty, p.Unit, p.Name})
	}
	return renderTable([]string{"Quantity", "Unit", "Name"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft})
}

func serveCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the local JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "listen address (default " + app.DefaultListenAddr + ")"},
		},
		Action: func(c *cli.Context) error {
			cfg := st.cfg
			if c.IsSet("listen") {
				cfg.ListenAddr = c.String("listen")
			}
			if err := app.ValidateConfig(cfg); err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := st.newApp(ctx, cfg)
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}
			defer a.Close()
			return server.New(a).ListenAndServe(ctx, cfg.ListenAddr)
		},
	}
}

func cacheCommand(st *state) *cli.Command {
	dir := func() (string, error) {
		if st.cfg.CacheDir == "" {
			return "", cli.Exit("no cache directory configured (use --cache-dir or GORECIPE_CACHE_DIR)", exitUsage)
		}
		return st.cfg.CacheDir, nil
	}
	return &cli.Command{
		Name:  "cache",
		Usage: "manage the HTTP cache",
		Subcommands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "remove every cached response",
				Action: func(c *cli.Context) error {
					d, err := dir()
					if err != nil {
						return err
					}
					if err := cache.ClearDir(d); err != nil {
						return fmt.Errorf("clear cache: %w", err)
					}
					log.Info().Str("dir", d).Msg("cache cleared")
					return nil
				},
			},
			{
				Name:  "purge",
				Usage: "remove cached responses older than --max-age",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "max-age", Required: true, Usage: "maximum age to keep, e.g. 168h"},
				},
				Action: func(c *cli.Context) error {
					d, err := dir()
					if err != nil {
						return err
					}
					maxAge := c.Duration("max-age")
					if maxAge <= 0 {
						return cli.Exit("--max-age must be positive", exitUsage)
					}
					n, err := cache.PurgeByAge(d, maxAge)
					if err != nil {
						return fmt.Errorf("purge cache: %w", err)
					}
					log.Info().Str("dir", d).Int("removed", n).Msg("cache purged")
					_, err = fmt.Fprintf(st.stdout, "removed %d entries\n", n)
					return err
				},
			},
		},
	}
}
