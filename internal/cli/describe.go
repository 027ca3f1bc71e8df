package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/introspect"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	Sphinx bool
	All    bool
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe [operation]",
		Short: "Show an operation's arguments and documentation",
		Long: `Show the documentation of an operation. --sphinx renders
reStructuredText; --all with --sphinx renders every operation.

Example:
  opcall describe min
  opcall describe --sphinx --all > ops.rst`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.All {
				if len(args) > 0 {
					return fmt.Errorf("--all takes no operation name")
				}
				return describeAll(opts, cmd)
			}
			if len(args) != 1 {
				return fmt.Errorf("describe needs an operation name or --all")
			}
			return describeOperation(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Sphinx, "sphinx", false, "render reStructuredText")
	cmd.Flags().BoolVar(&opts.All, "all", false, "describe every operation (implies --sphinx)")

	return cmd
}

type argumentJSON struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Blurb      string   `json:"blurb,omitempty"`
	Members    []string `json:"members,omitempty"`
	Deprecated bool     `json:"deprecated,omitempty"`
	Modified   bool     `json:"modified,omitempty"`
}

type describeJSON struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	RequiredInput  []argumentJSON `json:"required_input"`
	OptionalInput  []argumentJSON `json:"optional_input"`
	RequiredOutput []argumentJSON `json:"required_output"`
	OptionalOutput []argumentJSON `json:"optional_output"`
	Deprecated     bool           `json:"deprecated,omitempty"`
}

func describeOperation(opts *DescribeOptions, name string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	out := cmd.OutOrStdout()
	switch {
	case opts.Sphinx:
		doc, err := s.rt.Sphinx(name)
		if err != nil {
			return err
		}
		fmt.Fprint(out, doc)
		return nil

	case opts.Format == "json":
		d, err := s.rt.Describe(name)
		if err != nil {
			return err
		}
		return writeJSON(out, describeData(d))
	}

	doc, err := s.rt.Docstring(name)
	if err != nil {
		return err
	}
	d, err := s.rt.Describe(name)
	if err != nil {
		return err
	}
	p := newPainter(out)
	fmt.Fprintln(out, p.paint(titleStyle, signature(d, painter{})))
	fmt.Fprintln(out)
	fmt.Fprint(out, doc)
	return nil
}

func describeAll(opts *DescribeOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	doc, err := s.rt.SphinxAll()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), doc)
	return nil
}

func describeData(d *introspect.Descriptor) describeJSON {
	args := func(names []string) []argumentJSON {
		out := make([]argumentJSON, 0, len(names))
		for _, n := range names {
			det := d.Details[n]
			a := argumentJSON{
				Name:       n,
				Type:       det.TypeName(),
				Blurb:      det.Blurb,
				Deprecated: det.Flags.Has(opcall.ArgDeprecated),
				Modified:   det.Flags.Has(opcall.ArgModify),
			}
			if det.Enum != nil {
				a.Members = det.Enum.Nicks
			}
			out = append(out, a)
		}
		return out
	}
	return describeJSON{
		Name:           d.Name,
		Description:    d.Description,
		RequiredInput:  args(d.RequiredInput),
		OptionalInput:  args(d.OptionalInput),
		RequiredOutput: args(d.RequiredOutput),
		OptionalOutput: args(d.OptionalOutput),
		Deprecated:     d.Deprecated(),
	}
}
