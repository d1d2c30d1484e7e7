package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-aif/topology"
)

type inspectCmd struct {
	Path string `arg:"" type:"existingfile" help:"AIW metadata document (JSON or YAML)."`
}

func (c *inspectCmd) Run(a *app) error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}
	graph, err := topology.ParseAIW(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "workflow: %s\n", graph.Title)
	fmt.Fprintf(a.out, "channels: %s\n", strings.Join(graph.PortNames(), ", "))
	fmt.Fprintln(a.out, "sub-aims:")
	for _, name := range graph.SubAIMs {
		fmt.Fprintf(a.out, "  %s\n", name)
	}
	fmt.Fprintln(a.out, "bindings:")
	for _, b := range graph.Bindings {
		fmt.Fprintf(a.out, "  %s <- %s\n", b.AIMName, b.PortName)
	}
	return nil
}
