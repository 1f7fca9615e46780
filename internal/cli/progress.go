package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/fieldwise/internal/fields"
	"github.com/Veraticus/fieldwise/internal/provision"
)

// FieldProgress renders provisioning progress as a bar on w. The returned
// callback is meant for provision.WithProgress.
func FieldProgress(w io.Writer) func(provision.FieldProgress) {
	var bar *progressbar.ProgressBar

	return func(p provision.FieldProgress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetDescription("[cyan][bold]Creating custom fields...[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					_, _ = fmt.Fprintln(w)
				}),
			)
		}

		if p.Err != nil {
			bar.Describe(fmt.Sprintf("[red]%s failed[reset]", fields.Label(p.Key)))
		} else {
			bar.Describe(fmt.Sprintf("[cyan]%s[reset]", fields.Label(p.Key)))
		}
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}
