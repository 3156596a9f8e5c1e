package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"feaprep/internal/domain"
	"feaprep/internal/templates"
)

// newCmd represents the new command
var newCmd = &cobra.Command{
	Use:   "new <family> <file.yaml>",
	Short: "Writes a model document from a geometry template",
	Long: `Writes a model document for one of the template families (rectangle,
layered_plate, lshape, plate_with_hole). Supports are added with --fix and
loads with --load location=fx,fy. Layered plates take --layer
name=y_min,y_max,E,nu once per layer.`,
	Example: `  feaprep new rectangle beam.yaml --length 4 --height 1 --fix left --load right=0,-1000`,
	Args:    cobra.ExactArgs(2),
	RunE:    runNew,
}

func init() {
	rootCmd.AddCommand(newCmd)

	flags := newCmd.Flags()
	flags.String("name", "", "model name (default: family specific)")
	flags.String("description", "", "model description")
	flags.Float64("length", 0, "plate length")
	flags.Float64("height", 0, "plate or section height")
	flags.Float64("width", 0, "section width (lshape)")
	flags.Float64("flange-width", 0, "vertical flange width (lshape)")
	flags.Float64("flange-height", 0, "horizontal flange height (lshape)")
	flags.Float64("hole-x", 0, "hole centre x (plate_with_hole)")
	flags.Float64("hole-y", 0, "hole centre y (plate_with_hole)")
	flags.Float64("hole-radius", 0, "hole radius (plate_with_hole)")
	flags.Float64("E", templates.DefaultE, "Young's modulus")
	flags.Float64("nu", templates.DefaultNu, "Poisson ratio")
	flags.Float64("mesh-size", 0, "element size (default: family specific)")
	flags.String("element", string(domain.ElementTriangle), "element type: triangle, triangle6 or quad")
	flags.StringArray("layer", nil, "layer as name=y_min,y_max,E,nu")
	flags.StringSlice("fix", nil, "locations fixed in x and y")
	flags.StringArray("load", nil, "load as location=fx,fy")
}

func runNew(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	get := func(name string) float64 {
		f, _ := flags.GetFloat64(name)
		return f
	}
	name, _ := flags.GetString("name")

	tpl, err := templates.New(args[0], templates.Params{
		Name:         name,
		Length:       get("length"),
		Height:       get("height"),
		Width:        get("width"),
		FlangeWidth:  get("flange-width"),
		FlangeHeight: get("flange-height"),
		HoleX:        get("hole-x"),
		HoleY:        get("hole-y"),
		HoleRadius:   get("hole-radius"),
	})
	if err != nil {
		return err
	}

	if description, _ := flags.GetString("description"); description != "" {
		tpl.WithDescription(description)
	}
	if tpl.Family() != domain.FamilyLayeredRectangle {
		tpl.WithMaterial(get("E"), get("nu"))
	}
	size := get("mesh-size")
	if size == 0 {
		size = tpl.Document().Mesh.Size
	}
	element, _ := flags.GetString("element")
	tpl.WithMesh(size, domain.ElementFamily(element), 0)

	layers, _ := flags.GetStringArray("layer")
	for _, spec := range layers {
		label, values, err := splitSpec(spec, 4)
		if err != nil {
			return fmt.Errorf("--layer %q: %w", spec, err)
		}
		tpl.AddLayer(label, values[0], values[1], values[2], values[3])
	}

	fixed, _ := flags.GetStringSlice("fix")
	for _, loc := range fixed {
		tpl.AddBC(domain.Location(loc), domain.Fixed, domain.Fixed)
	}

	loads, _ := flags.GetStringArray("load")
	for _, spec := range loads {
		loc, values, err := splitSpec(spec, 2)
		if err != nil {
			return fmt.Errorf("--load %q: %w", spec, err)
		}
		tpl.AddLoad(domain.Location(loc), values[0], values[1])
	}

	if err := tpl.Save(args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s model %q to %s\n", tpl.Family(), tpl.Document().ModelName, args[1])
	return nil
}

// splitSpec parses "label=v1,v2,..." with exactly n numbers
func splitSpec(spec string, n int) (string, []float64, error) {
	label, rest, ok := strings.Cut(spec, "=")
	if !ok || label == "" {
		return "", nil, fmt.Errorf("expected label=%s", strings.Repeat("v,", n-1)+"v")
	}
	parts := strings.Split(rest, ",")
	if len(parts) != n {
		return "", nil, fmt.Errorf("expected %d comma separated values, got %d", n, len(parts))
	}
	values := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", nil, err
		}
		values[i] = f
	}
	return label, values, nil
}
