package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

type Delete struct {
	cmd *cobra.Command

	mainopts *Options
	all      bool
	rules    bool
}

func NewDelete(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <event> {<id>} | -r {<rule>} <options>",
		Short: "delete listeners or rules",
	}

	c := &Delete{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	flags := cmd.Flags()
	flags.BoolVarP(&c.all, "all", "A", false, "all listeners of the event type")
	flags.BoolVarP(&c.rules, "rule", "r", false, "delete rules by name")
	return cmd
}

func (c *Delete) Run(args []string) error {
	var cmderr error

	client := c.mainopts.Client()
	if c.rules {
		if len(args) == 0 {
			return fmt.Errorf("rule name required")
		}
		for _, n := range args {
			if err := client.DeleteRule(n); err != nil {
				fmt.Fprintf(c.cmd.ErrOrStderr(), "rule %s: %s\n", n, err.Error())
				cmderr = fmt.Errorf("deletion failed for some rules")
				continue
			}
			fmt.Fprintf(c.cmd.OutOrStdout(), "rule %s: deleted\n", n)
		}
		return cmderr
	}

	if len(args) < 1 {
		return fmt.Errorf("event type required")
	}
	e, err := webrequest.ParseEventType(args[0])
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if !c.all {
			return fmt.Errorf("no listener specified")
		}
		if err := client.Clear(e); err != nil {
			return err
		}
		fmt.Fprintf(c.cmd.OutOrStdout(), "%s: all listeners deleted\n", e)
		return nil
	}

	for _, id := range args[1:] {
		if err := client.Remove(e, id); err != nil {
			fmt.Fprintf(c.cmd.ErrOrStderr(), "%s/%s: %s\n", e, id, err.Error())
			cmderr = fmt.Errorf("deletion failed for some listeners")
			continue
		}
		fmt.Fprintf(c.cmd.OutOrStdout(), "%s/%s: deleted\n", e, id)
	}
	return cmderr
}
