// Command linter runs the forbiddencalls analyzer over the module.
package main

import (
	"github.com/MikhailRaia/media-proxy/cmd/linter/analyzer"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(analyzer.Analyzer)
}
