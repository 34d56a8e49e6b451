package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/wippyai/bindgen/runtime"
	"github.com/wippyai/bindgen/schema"
)

func describeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "Print the declarations of a file or library",
		ArgsUsage: "[decl.yaml]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "text or yaml"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable styling of text output"},
		},
		Action: describeAction,
	}
}

func describeAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return cli.Exit("describe takes at most one declaration file", 2)
	}

	var (
		cat *schema.Catalog
		err error
	)
	if path := c.Args().First(); path != "" {
		cat, err = loadFile(path)
	} else {
		cat, err = describeLibrary(c)
	}
	if err != nil {
		return err
	}

	out := c.App.Writer
	switch strings.ToLower(c.String("format")) {
	case "yaml":
		return cat.WriteYAML(out)
	case "text":
		styled := !c.Bool("no-color") && isTerminal(out)
		return writeCatalog(out, cat, newPalette(styled))
	default:
		return cli.Exit(fmt.Sprintf("invalid format %q (must be text or yaml)", c.String("format")), 2)
	}
}

func describeLibrary(c *cli.Context) (*schema.Catalog, error) {
	lib, err := openLibrary(c)
	if err != nil {
		return nil, err
	}
	defer lib.Close(c.Context)
	return runtime.Describe(c.Context, lib)
}

func loadFile(path string) (*schema.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cat, err := schema.LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type palette struct {
	title lipgloss.Style
	name  lipgloss.Style
	typ   lipgloss.Style
	dim   lipgloss.Style
}

func newPalette(styled bool) palette {
	if !styled {
		plain := lipgloss.NewStyle()
		return palette{title: plain, name: plain, typ: plain, dim: plain}
	}
	return palette{
		title: titleStyle,
		name:  funcStyle,
		typ:   typeStyle,
		dim:   helpStyle,
	}
}

func writeCatalog(w io.Writer, cat *schema.Catalog, p palette) error {
	var b strings.Builder

	b.WriteString(p.title.Render("Types"))
	b.WriteString("\n")
	for _, t := range cat.Types() {
		b.WriteString("  ")
		b.WriteString(p.typ.Render(t.Describe()))
		if t.Kind != schema.KindHandle {
			info := schema.Layout(t)
			if info.Fixed {
				b.WriteString(p.dim.Render(fmt.Sprintf("  (%d bytes)", info.Size)))
			} else {
				b.WriteString(p.dim.Render(fmt.Sprintf("  (min %d bytes)", info.MinSize)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(p.title.Render("Functions"))
	b.WriteString("\n")
	for _, f := range cat.Funcs() {
		b.WriteString("  ")
		b.WriteString(p.name.Render(f.Symbol()))
		b.WriteString(" ")
		b.WriteString(f.String())
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
