package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewEntitiesCommand creates the entities command.
func NewEntitiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "entities",
		Short:         "List the entity catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := rootOpts.registry()
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return out.JSON(reg.List())
			}

			w := cmd.OutOrStdout()
			for _, e := range reg.List() {
				fmt.Fprintf(w, "%s\n", e.Name)
				fmt.Fprintf(w, "  primary key: %s\n", joinOrDash(e.PrimaryKey))
				fmt.Fprintf(w, "  unique:      %s\n", joinOrDash(e.Unique))
				fmt.Fprintf(w, "  required:    %s\n", joinOrDash(e.RequiredOnCreate))
				if a := e.Attachment; a != nil {
					fmt.Fprintf(w, "  attachment:  %s (%s, %s)\n",
						a.Field, describeTypes(a.AllowedMIMETypes), describeLimit(a.MaxBytes))
				}
			}
			return nil
		},
	}
}

func joinOrDash(fields []string) string {
	if len(fields) == 0 {
		return "-"
	}
	return strings.Join(fields, ", ")
}

func describeTypes(types []string) string {
	switch {
	case types == nil:
		return "any type"
	case len(types) == 0:
		return "no type allowed"
	default:
		return strings.Join(types, ", ")
	}
}

func describeLimit(maxBytes *int64) string {
	if maxBytes == nil {
		return "no size limit"
	}
	return fmt.Sprintf("max %d bytes", *maxBytes)
}
