package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/folioworks/folio/pkg/placement"
	"github.com/folioworks/folio/pkg/storage"
)

// placeOptions holds flags for the place command.
type placeOptions struct {
	x, y   float64
	notes  string
	fromDB bool
	json   bool
}

func (c *CLI) placeCommand() *cobra.Command {
	opts := placeOptions{}

	cmd := &cobra.Command{
		Use:   "place --x X --y Y [--notes FILE | --from-db]",
		Short: "Show where a note dropped at (x, y) would be placed",
		Long: `Run the placement advisor for a note dropped at (x, y).

Existing notes are read from a JSON array of {"x": ..., "y": ...} objects
(--notes, "-" for stdin) or from the configured database (--from-db).
Geometry comes from the [placement] section of the config.`,
		Example: `  folio place --x 100 --y 100 --notes wall.json
  echo '[{"x":140,"y":0}]' | folio place --x 0 --y 0 --notes - --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlace(cmd, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.x, "x", 0, "desired x coordinate")
	cmd.Flags().Float64Var(&opts.y, "y", 0, "desired y coordinate")
	cmd.Flags().StringVar(&opts.notes, "notes", "", `JSON file of existing note positions ("-" for stdin)`)
	cmd.Flags().BoolVar(&opts.fromDB, "from-db", false, "read existing positions from the database")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("notes", "from-db")

	return cmd
}

func (c *CLI) runPlace(cmd *cobra.Command, opts placeOptions) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	var existing []placement.Point
	switch {
	case opts.fromDB:
		db, err := storage.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if existing, err = db.Notes.Positions(cmd.Context()); err != nil {
			return fmt.Errorf("load note positions: %w", err)
		}
	case opts.notes != "":
		if existing, err = readPositions(cmd.InOrStdin(), opts.notes); err != nil {
			return err
		}
	}

	advisor := placement.New(cfg.Placement)
	res := advisor.Place(placement.Point{X: opts.x, Y: opts.y}, existing)
	c.Logger.Debug("placement", "existing", len(existing), "attempts", res.Attempts)

	out := cmd.OutOrStdout()
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	switch {
	case res.Exhausted:
		printWarning(out, "No free spot within %g of the requested point", advisor.Config().SearchRadius)
		printPoint(out, "fallback", res.X, res.Y)
	case res.Adjusted:
		printSuccess(out, "Moved to avoid %d existing notes", len(existing))
		printMove(out, opts.x, opts.y, res.X, res.Y)
	default:
		printSuccess(out, "Requested spot is free")
		printPoint(out, "position", res.X, res.Y)
	}
	printDetail(out, "%d candidates checked", res.Attempts)
	return nil
}

// readPositions decodes a JSON array of points from path, or from stdin
// when path is "-".
func readPositions(stdin io.Reader, path string) ([]placement.Point, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open notes: %w", err)
		}
		defer f.Close()
		r = f
	}
	var points []placement.Point
	if err := json.NewDecoder(r).Decode(&points); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return points, nil
}
