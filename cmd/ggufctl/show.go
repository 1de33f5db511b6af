package main

import (
	"fmt"
	"os"

	"github.com/containerd/console"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ggufkit/ggufkit/content"
)

func newShowCmd() *cobra.Command {
	var shards bool
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "print a model's header, metadata and tensor table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args[0], shards)
		},
	}
	cmd.Flags().BoolVar(&shards, "shards", false, "no effect: every sibling shard of the file is always shown")
	return cmd
}

func runShow(path string, shards bool) error {
	c, fn, err := loadContent(path)
	if err != nil {
		return err
	}
	_ = shards // loadContent already merges every sibling shard unconditionally

	fmt.Printf("%s\n", fn.String())
	showMeta(c)
	showTensors(c)
	return nil
}

func showMeta(c *content.Content) {
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"Key", "Value"})
	t.SetAutoWrapText(false)
	for _, k := range c.MetaKeys() {
		v, _ := c.MetaGet(k)
		t.Append([]string{k, fmt.Sprintf("%v", v)})
	}
	t.Render()
}

func showTensors(c *content.Content) {
	width := 80
	if size, err := console.Current().Size(); err == nil && size.Width > 0 {
		width = int(size.Width)
	}

	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"Name", "Type", "Shape"})
	t.SetColWidth(width)
	for _, n := range c.TensorNames() {
		tn, _ := c.TensorGet(n)
		t.Append([]string{n, tn.Type.String(), fmt.Sprint(tn.Shape)})
	}
	t.Render()
}
