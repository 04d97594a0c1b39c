package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/starford/promptbox/internal"
	"github.com/starford/promptbox/internal/models"
	"github.com/starford/promptbox/internal/promptservice"
	"github.com/starford/promptbox/internal/query"
	"github.com/starford/promptbox/internal/transfer"
	pkgconfig "github.com/starford/promptbox/pkg/config"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadWithDefaults(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openApp opens the store for a one-shot command. Logs go to stderr so
// stdout carries only the command output.
func openApp(ctx context.Context, cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Open(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr),
	)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API and the inbox watcher (default)",
		Action: serve,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the prompt library over MCP on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Case-insensitive text search"},
		&cli.StringFlag{Name: "tag", Usage: "Exact tag"},
		&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Usage: "Folder name"},
		&cli.BoolFlag{Name: "favorite", Usage: "Only favorites"},
		&cli.StringFlag{Name: "order", Aliases: []string{"o"}, Usage: "Sort by created, updated or usage"},
	}
}

func filterFromFlags(svc *promptservice.Service, cmd *cli.Command) (models.Filter, error) {
	order, err := query.ParseOrder(cmd.String("order"))
	if err != nil {
		return models.Filter{}, err
	}
	f := models.Filter{
		Text:     cmd.String("text"),
		Tag:      cmd.String("tag"),
		Favorite: cmd.Bool("favorite"),
		Order:    order,
	}
	if name := cmd.String("folder"); name != "" {
		folder, ok := svc.FindFolder(name)
		if !ok {
			return models.Filter{}, fmt.Errorf("unknown folder: %s", name)
		}
		f.Folder = folder.ID
	}
	return f, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List prompts, filtered and paginated",
		Flags: append(filterFlags(),
			&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "Page number"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := filterFromFlags(app.Service, cmd)
			if err != nil {
				return err
			}
			page := app.Service.SetView(f, int(cmd.Int("page")), 0)
			return printPage(cmd.Root().Writer, app.Service, page)
		},
	}
}

func printPage(w io.Writer, svc *promptservice.Service, page query.Page) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFAV\tFOLDER\tTAGS\tUSES\tTEXT")
	for _, p := range page.Items {
		fav := ""
		if p.Favorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, fav, svc.FolderName(p.FolderID), strings.Join(p.Tags, ","), p.UsageCount, preview(p.Text, 60))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d/%d, %d prompt(s)\n", page.Page, max(page.TotalPages, 1), page.Total)
	return err
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n-1]) + "…"
}

func copyCommand() *cli.Command {
	return &cli.Command{
		Name:      "copy",
		Usage:     "Print a prompt's text and count the use",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return errors.New("copy: prompt id is required")
			}
			app, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			text, err := app.Service.CopyPrompt(ctx, id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.Root().Writer, text)
			return err
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the matching prompts and every folder to a JSON file",
		Flags: append(filterFlags(),
			&cli.StringFlag{Name: "out", Usage: "Output file (default prompts-export-<date>.json)"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := filterFromFlags(app.Service, cmd)
			if err != nil {
				return err
			}
			app.Service.SetView(f, 1, 0)

			path := cmd.String("out")
			if path == "" {
				path = app.Service.ExportFilename()
			}
			written, err := exportTo(app.Service, path, bufio.NewReader(os.Stdin), cmd.Root().Writer)
			if err != nil || !written {
				return err
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "exported to %s\n", path)
			return err
		},
	}
}

// exportTo writes the current view to path. An existing file is only
// replaced after confirmation; declining writes nothing.
func exportTo(svc *promptservice.Service, path string, in *bufio.Reader, out io.Writer) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		answer, err := ask(in, fmt.Sprintf("%s exists. Overwrite? [y/N]", path), out)
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		if a := strings.ToLower(answer); a != "y" && a != "yes" {
			return false, nil
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("export: %w", err)
	}
	if err := svc.Export(file); err != nil {
		_ = file.Close()
		return false, err
	}
	return true, file.Close()
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load prompts and folders from an exported JSON file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "replace, merge or cancel (asked when omitted)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("import: file is required")
			}
			app, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := importFrom(ctx, app.Service, path, cmd.String("mode"), os.Stdin, cmd.Root().Writer)
			if err != nil {
				return err
			}
			if res.Mode == transfer.ModeCancel {
				_, err = fmt.Fprintln(cmd.Root().Writer, "import cancelled")
				return err
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "imported (%s): %d prompts, %d folders\n", res.Mode, res.Prompts, res.Folders)
			return err
		},
	}
}

// importFrom validates the file first and only then asks for the mode,
// unless one was given.
func importFrom(ctx context.Context, svc *promptservice.Service, path, modeFlag string, stdin *os.File, out io.Writer) (promptservice.ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return promptservice.ImportResult{}, fmt.Errorf("import: %w", err)
	}
	defer file.Close()

	b, err := svc.PrepareImport(file)
	if err != nil {
		return promptservice.ImportResult{}, err
	}

	raw := modeFlag
	if raw == "" {
		if !isTerminal(int(stdin.Fd())) {
			return promptservice.ImportResult{}, errors.New("import: --mode is required when stdin is not a terminal")
		}
		raw, err = ask(bufio.NewReader(stdin),
			fmt.Sprintf("Import %d prompts and %d folders. Mode? [replace/merge/cancel]", len(b.Prompts), len(b.Folders)), out)
		if err != nil && !errors.Is(err, io.EOF) {
			return promptservice.ImportResult{}, err
		}
	}
	mode, err := transfer.ParseMode(raw)
	if err != nil {
		return promptservice.ImportResult{}, err
	}
	return svc.ApplyImport(ctx, b, mode)
}

// ask prints prompt to w and reads one trimmed line.
func ask(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	return strings.TrimSpace(line), err
}
