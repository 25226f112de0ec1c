package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/dynrag/internal/dagger"
)

// binaries maps each output name to its main package.
var binaries = map[string]string{
	"dynrag":                  "./cli/dynrag",
	"dynragapi":               "./cli/dynragapi",
	"lambda/ingest/bootstrap": "./cli/lambda/ingest",
	"lambda/query/bootstrap":  "./cli/lambda/query",
}

// Build and return directory of go binaries
func (d *Dynrag) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// cgo rules out cross compiling, so only linux on the engine's
	// architecture is built
	build := d.goContainer().
		WithEnvVariable("GOOS", "linux")

	for out, pkg := range binaries {
		build = build.WithExec([]string{"go", "build", "-tags", "lambda.norpc", "-ldflags", ldflags, "-o", "/out/" + out, pkg})
	}

	return build.Directory("/out")
}

// BuildRelease compiles versioned release binaries with embedded version info
func (d *Dynrag) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/danielpid/dynamic-rag/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/danielpid/dynamic-rag/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/danielpid/dynamic-rag/pkg/utils.Buildtime=%s'", buildtime),
	}

	return d.Build(ctx, strings.Join(ldflags, " "))
}
