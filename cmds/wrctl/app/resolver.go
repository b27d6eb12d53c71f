package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

type Resolver struct {
	cmd *cobra.Command

	mainopts *Options
	output   string
}

func NewResolver(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolver [<event> <policy>] <options>",
		Short: "show or set the resolution policies",
		Long: fmt.Sprintf(`
Without arguments the policies of all callback event types are shown.
Otherwise, the policy for the given event type is set. Available
policies are %v.
`, webrequest.ResolverNames()),
	}

	c := &Resolver{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.output, "output", "o", "", "output format (table, json, yaml)")
	return cmd
}

func (c *Resolver) Run(args []string) error {
	client := c.mainopts.Client()

	switch len(args) {
	case 0:
		m, err := client.Resolvers()
		if err != nil {
			return err
		}
		return Output(c.cmd.OutOrStdout(), c.output, m, func(w io.Writer) error {
			rows := utils.TransformSlice(utils.OrderedMapKeys(m), func(e webrequest.EventType) []string {
				return []string{string(e), m[e]}
			})
			PrintTable(w, []string{"EVENT", "POLICY"}, rows)
			return nil
		})
	case 2:
		e, err := webrequest.ParseEventType(args[0])
		if err != nil {
			return err
		}
		r, err := client.SetResolver(e, args[1])
		if err != nil {
			return err
		}
		s := "set"
		if r.Replaced {
			s = "replaced"
		}
		fmt.Fprintf(c.cmd.OutOrStdout(), "%s: policy %s %s\n", r.Event, r.Policy, s)
		return nil
	default:
		return fmt.Errorf("event type and policy required")
	}
}
