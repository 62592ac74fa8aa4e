package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/geoforge/gml2step/internal/citygml"
	"github.com/geoforge/gml2step/internal/errors"
)

// InspectCmd implements the 'inspect' command: a dry look at what a file
// contains before committing to a conversion.
type InspectCmd struct {
	Input string   `arg:"" help:"CityGML input file"`
	ID    []string `name:"id" help:"Inspect only the buildings with these gml:ids"`
}

func (cmd *InspectCmd) Run(_ *Global, _ *CLI) error {
	f, err := os.Open(cmd.Input)
	if err != nil {
		return errors.WrapFatal(err, errors.CategoryInput, "open input file")
	}
	defer f.Close()

	doc, err := citygml.Parse(f)
	if err != nil {
		return errors.WrapFatal(err, errors.CategoryInput, "parse citygml document")
	}

	buildings := citygml.FilterBuildings(doc.Buildings(), cmd.ID, "")
	if srs := doc.SRSName(); srs != "" {
		fmt.Printf("CRS: %s\n", srs)
	} else {
		fmt.Println("CRS: not declared")
	}
	fmt.Printf("Buildings: %d\n\n", len(buildings))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGEOMETRY\tBOUNDARY SURFACES\tPARTS\tHEIGHT")
	for _, b := range buildings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			displayID(b), geometrySummary(b), surfaceSummary(b),
			len(b.Parts()), heightSummary(b))
	}
	return w.Flush()
}

func displayID(b *citygml.Building) string {
	if id := b.ID(); id != "" {
		return id
	}
	return "(no id)"
}

// geometrySummary lists the LOD representations present, highest first.
func geometrySummary(b *citygml.Building) string {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	var reprs []string
	for lod := 3; lod >= 1; lod-- {
		if b.LODSolid(lod, log) != nil {
			reprs = append(reprs, fmt.Sprintf("lod%dSolid", lod))
		}
		if b.LODMultiSurface(lod, log) != nil {
			reprs = append(reprs, fmt.Sprintf("lod%dMultiSurface", lod))
		}
	}
	if len(b.Footprints(log)) > 0 {
		reprs = append(reprs, "lod0FootPrint")
	}
	if len(reprs) == 0 {
		return "none"
	}
	return strings.Join(reprs, ",")
}

func surfaceSummary(b *citygml.Building) string {
	counts := make(map[string]int)
	for _, surf := range b.BoundarySurfaces() {
		counts[surf.Type]++
	}
	if len(counts) == 0 {
		return "-"
	}
	var parts []string
	for _, typ := range citygml.BoundarySurfaceTypes {
		if n := counts[typ]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", strings.TrimSuffix(typ, "Surface"), n))
		}
	}
	return strings.Join(parts, " ")
}

func heightSummary(b *citygml.Building) string {
	if h, ok := b.MeasuredHeight(); ok {
		return fmt.Sprintf("%.1f", h)
	}
	return "-"
}
