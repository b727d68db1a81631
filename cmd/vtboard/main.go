// Command vtboard はVTuberファン向け掲示板のWebサーバー。
//
// 使い方:
//
//	vtboard [serve|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/vtboard/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "vtboard: %v\n", err)
		os.Exit(1)
	}
}
