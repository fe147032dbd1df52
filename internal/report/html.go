package report

//go:generate templ generate -f page.templ

import (
	"context"
	"strings"

	"hermitbench/internal/bench"
)

// RenderHTML renders Page into a string.
func RenderHTML(ctx context.Context, batch bench.Batch) (string, error) {
	var builder strings.Builder
	if err := Page(batch).Render(ctx, &builder); err != nil {
		return "", err
	}
	return builder.String(), nil
}
