package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mandelsoft/webrequest/pkg/api"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

type Get struct {
	cmd *cobra.Command

	mainopts *Options
	output   string
}

func NewGet(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [rules | {<event>}] <options>",
		Short: "show registered listeners or rules",
	}

	c := &Get{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.output, "output", "o", "", "output format (table, json, yaml)")
	return cmd
}

func (c *Get) Run(args []string) error {
	client := c.mainopts.Client()

	if len(args) == 1 && args[0] == "rules" {
		list, err := client.Rules()
		if err != nil {
			return err
		}
		return Output(c.cmd.OutOrStdout(), c.output, list, func(w io.Writer) error { return PrintRules(w, list) })
	}

	var buckets []api.Bucket
	if len(args) == 0 {
		list, err := client.Buckets()
		if err != nil {
			return err
		}
		buckets = list
	} else {
		for _, arg := range args {
			e, err := webrequest.ParseEventType(arg)
			if err != nil {
				return err
			}
			b, err := client.Bucket(e)
			if err != nil {
				return fmt.Errorf("%s: %w", arg, err)
			}
			buckets = append(buckets, *b)
		}
	}

	var data any = &api.BucketList{Items: buckets}
	if len(args) == 1 {
		data = buckets[0]
	}
	return Output(c.cmd.OutOrStdout(), c.output, data, func(w io.Writer) error { return PrintBuckets(w, buckets) })
}

func PrintBuckets(w io.Writer, list []api.Bucket) error {
	var rows [][]string
	for _, b := range list {
		for _, l := range b.Listeners {
			prio := ""
			if l.Priority != nil {
				prio = strconv.FormatFloat(*l.Priority, 'g', -1, 64)
			}
			rows = append(rows, []string{string(b.Event), l.ID, strconv.FormatInt(l.Order, 10), prio, l.Origin, strings.Join(l.URLs, ",")})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintf(w, "no listeners found\n")
		return nil
	}
	PrintTable(w, []string{"EVENT", "ID", "ORDER", "PRIORITY", "ORIGIN", "URLS"}, rows)
	return nil
}

func PrintRules(w io.Writer, list []api.Rule) error {
	if len(list) == 0 {
		fmt.Fprintf(w, "no rules found\n")
		return nil
	}
	var rows [][]string
	for _, r := range list {
		urls := strings.Join(r.URLs, ",")
		if urls == "" {
			urls = "<all_urls>"
		}
		rows = append(rows, []string{r.Name, string(r.Event), urls, effects(&r)})
	}
	PrintTable(w, []string{"NAME", "EVENT", "URLS", "EFFECT"}, rows)
	return nil
}

func effects(r *api.Rule) string {
	var e []string
	if r.Cancel {
		e = append(e, "cancel")
	}
	if r.RedirectURL != "" {
		e = append(e, "redirect")
	}
	if len(r.SetRequestHeaders) > 0 || len(r.RemoveRequestHeaders) > 0 {
		e = append(e, "request headers")
	}
	if len(r.SetResponseHeaders) > 0 {
		e = append(e, "response headers")
	}
	if r.Log {
		e = append(e, "log")
	}
	return strings.Join(e, ",")
}
