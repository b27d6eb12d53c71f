package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/webrequest/pkg/utils"
)

// Output prints data in the requested format. For the default
// format the table function is used.
func Output(w io.Writer, format string, data any, table func(w io.Writer) error) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "table":
		return table(w)
	case "json":
		data, err := json.Marshal(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\n", string(data))
	case "yaml":
		data, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s", string(data))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

// PrintTable prints rows with left aligned columns.
func PrintTable(w io.Writer, columns []string, rows [][]string) {
	max := utils.TransformSlice(columns, func(s string) int { return len(s) })
	for _, cols := range rows {
		for i, s := range cols {
			if max[i] < len(s) {
				max[i] = len(s)
			}
		}
	}

	f := formatString(max)
	printLine(w, columns, f)
	for _, cols := range rows {
		printLine(w, cols, f)
	}
}

func printLine(w io.Writer, cols []string, msg string) {
	args := utils.TransformSlice(cols, func(s string) any { return s })
	fmt.Fprintf(w, "%s\n", strings.TrimRight(fmt.Sprintf(msg, args...), " "))
}

func formatString(max []int) string {
	msg := ""
	for _, l := range max {
		msg += fmt.Sprintf("%%-%ds ", l)
	}
	return msg[:len(msg)-1]
}
