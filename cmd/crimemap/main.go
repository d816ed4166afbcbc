// Command crimemap serves and scripts the crime incident dashboard: filtering,
// neighborhood severity classification, and weekly incident forecasts.
//
// Usage:
//
//	crimemap serve
//	crimemap forecast --model tree --window 26 --horizon 8
//	crimemap export --out report.xlsx --neighborhood "El Prado"
//	crimemap publish --category Hurto
//	crimemap validate
//	crimemap genmock --neighborhoods barrios.geojson --out incidents.csv
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
