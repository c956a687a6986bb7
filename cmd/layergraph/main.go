// Package main provides the layergraph CLI.
//
// Usage:
//
//	layergraph inspect [-input name=shape]... [-init] FILE
//	layergraph describe KIND
//	layergraph version
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/layergraph/graph"
	"github.com/born-ml/layergraph/layers"
	"github.com/born-ml/layergraph/tensor"
)

const version = "v0.1.0-dev"

func main() {
	log.SetFlags(0)
	log.SetPrefix("layergraph: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "inspect":
		err = inspect(os.Args[2:])
	case "describe":
		err = describe(os.Args[2:])
	case "version":
		fmt.Printf("layergraph %s\n", version)
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func usage() {
	fmt.Println("layergraph - declarative layer graphs with shape inference")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  inspect    Build a graph description and print its shapes")
	fmt.Println("  describe   Show the properties of a layer kind")
	fmt.Println("  version    Show version")
	fmt.Println("")
	fmt.Printf("Layer kinds: %s\n", strings.Join(layers.Kinds(), ", "))
}

// entryShapes collects repeated -input name=shape flags.
type entryShapes map[string]tensor.Shape

func (e entryShapes) String() string {
	parts := make([]string, 0, len(e))
	for name, shape := range e {
		parts = append(parts, name+"="+shape.String())
	}
	return strings.Join(parts, " ")
}

func (e entryShapes) Set(value string) error {
	name, text, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=shape, got %q", value)
	}
	shape, err := tensor.Parse(text)
	if err != nil {
		return err
	}
	e[name] = shape
	return nil
}

func inspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	entry := entryShapes{}
	fs.Var(entry, "input", "Entry shape as name=shape, e.g. image=28,28,3 (repeatable)")
	initialize := fs.Bool("init", false, "Initialize the graph and list parameter shapes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("inspect expects one description file, got %d arguments", fs.NArg())
	}

	g, err := graph.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	if *initialize || len(entry) > 0 {
		if err := g.Initialize(entry); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAYER\tKIND\tINPUT\tOUTPUT\tPARAMETERS")
	for _, l := range g.Order() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			l.Name(), l.Kind(), inputs(g, l), l.OutputShape(), parameters(l))
	}
	return w.Flush()
}

func inputs(g *graph.Graph, l layers.Layer) string {
	if l.Topology().Source {
		return "-"
	}
	preds := g.Predecessors(l.Name())
	if len(preds) == 0 {
		return l.InputShape().String()
	}
	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.Name()
	}
	return strings.Join(names, ", ")
}

func parameters(l layers.Layer) string {
	params := l.Parameters()
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Shape().String()
	}
	return strings.Join(parts, " ")
}

func describe(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("describe expects one layer kind, available: %s", strings.Join(layers.Kinds(), ", "))
	}
	info, err := layers.Describe(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s\n", info.Kind, info.Doc)
	fmt.Printf("fan-in: %t, fan-out: %t, entry point: %t\n\n",
		info.Topology.FanIn, info.Topology.FanOut, info.Topology.Source)
	if len(info.Properties) == 0 {
		fmt.Println("No properties.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROPERTY\tDEFAULT\tACCEPTS\tDESCRIPTION")
	for _, d := range info.Properties {
		def := fmt.Sprint(d.Default)
		switch {
		case d.Required:
			def = "required"
		case d.Default == nil:
			def = "null"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, def, d.Rule.Describe(), d.Doc)
	}
	return w.Flush()
}
