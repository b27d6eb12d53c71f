package app

import (
	"fmt"
	"io"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/webrequest/pkg/api"
)

type Apply struct {
	cmd *cobra.Command

	mainopts *Options
	files    []string
}

func NewApply(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "apply <options>",
		Short:            "apply listener rules",
		TraverseChildren: true,
	}

	c := &Apply{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	flags := cmd.Flags()
	flags.StringSliceVarP(&c.files, "file", "f", nil, "rule file (- for stdin)")
	return cmd
}

type ruleList struct {
	Items []api.Rule `json:"items"`
}

// ParseRules accepts a single rule, a list of rules or
// a rule list with an items field.
func ParseRules(data []byte) ([]api.Rule, bool, error) {
	var list ruleList
	if err := yaml.UnmarshalStrict(data, &list); err == nil && list.Items != nil {
		return list.Items, true, nil
	}
	var rules []api.Rule
	if err := yaml.UnmarshalStrict(data, &rules); err == nil {
		return rules, true, nil
	}
	var rule api.Rule
	if err := yaml.UnmarshalStrict(data, &rule); err != nil {
		return nil, false, err
	}
	return []api.Rule{rule}, false, nil
}

func (c *Apply) Run(args []string) error {
	var cmderr error

	if len(args) != 0 {
		return fmt.Errorf("no arguments expected")
	}
	if len(c.files) == 0 {
		return fmt.Errorf("no rule file given")
	}

	client := c.mainopts.Client()
	for _, f := range c.files {
		var data []byte
		var err error

		if f == "-" {
			data, err = io.ReadAll(c.cmd.InOrStdin())
		} else {
			data, err = vfs.ReadFile(c.mainopts.fs, f)
		}
		if err != nil {
			fmt.Fprintf(c.cmd.ErrOrStderr(), "cannot read file %q: %s\n", f, err.Error())
			cmderr = fmt.Errorf("apply failed for some rules")
			continue
		}

		rules, multi, err := ParseRules(data)
		if err != nil {
			fmt.Fprintf(c.cmd.ErrOrStderr(), "cannot unmarshal file %q: %s\n", f, err.Error())
			cmderr = fmt.Errorf("apply failed for some rules")
			continue
		}

		for i := range rules {
			r := &rules[i]
			if err := r.Validate(); err != nil {
				cmderr = IndexError(c.cmd, multi, i, f, "invalid rule", err)
				continue
			}
			l, created, err := client.Apply(r)
			if err != nil {
				cmderr = IndexError(c.cmd, multi, i, f, fmt.Sprintf("rule %q: cannot apply", r.Name), err)
				continue
			}
			s := "updated"
			if created {
				s = "created"
			}
			fmt.Fprintf(c.cmd.OutOrStdout(), "rule %s: %s (listener %s)\n", r.Name, s, l.ID)
		}
	}
	return cmderr
}

func IndexError(c *cobra.Command, multi bool, index int, file string, msg string, err error) error {
	if multi {
		fmt.Fprintf(c.ErrOrStderr(), "%s for rule %d in %q: %s\n", msg, index+1, file, err.Error())
	} else {
		fmt.Fprintf(c.ErrOrStderr(), "%s for %q: %s\n", msg, file, err.Error())
	}
	return fmt.Errorf("apply failed for some rules")
}
