package cli

import (
	"github.com/spf13/cobra"

	"github.com/calldesk/calldesk-cli/internal/buildinfo"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeData(cmd, app, nil, buildinfo.Info())
		},
	}
}
