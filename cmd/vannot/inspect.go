package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vannot/vannot/internal/token"
	"github.com/vannot/vannot/internal/vtt"
	"github.com/vannot/vannot/pkg/core"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <container.vtt>",
		Short: "Decode an annotation container and print its objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0])
		},
	}
}

func runInspect(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	codec := vtt.New(slog.New(slog.NewTextHandler(os.Stderr, nil)), token.NewRand())
	objects, header, err := codec.Decode(string(data))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	fmt.Fprintf(out, "Source:    %s\n", header.VideoName)
	if !header.GeneratedAt.IsZero() {
		fmt.Fprintf(out, "Generated: %s\n", header.GeneratedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Objects:   %d\n\n", len(objects))

	if len(objects) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(objects))
	for _, obj := range objects {
		rows = append(rows, []string{
			obj.Name,
			strconv.FormatFloat(obj.TemporalMarker, 'f', -1, 64),
			obj.Category,
			obj.Code,
			geometryLabel(obj.Geometry),
			obj.DerivedLink,
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"NAME", "TIME", "CATEGORY", "CODE", "GEOMETRY", "LINK"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

func geometryLabel(g *core.Geometry) string {
	switch g.Kind() {
	case core.KindRectangle:
		r := g.Rectangle
		return fmt.Sprintf("rect (%.0f,%.0f)-(%.0f,%.0f)",
			r.Start.X, r.Start.Y, r.End.X, r.End.Y)
	case core.KindClick:
		return fmt.Sprintf("click (%.0f,%.0f)", g.Click.Point.X, g.Click.Point.Y)
	case core.KindPath:
		return fmt.Sprintf("path (%d points)", len(g.Path.Points))
	default:
		return "-"
	}
}
