package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
)

var showNets bool

var infoCmd = &cobra.Command{
	Use:   "info <project_file>",
	Short: "Show project and board information",
	Long: `Display the boards of a project with their item counts and size.

With --nets: also lists every net of each board with pad/trace/via counts`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&showNets, "nets", false, "list nets per board")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	p, err := board.LoadProject(args[0])
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Project: %s\n", p.Name)
	fmt.Fprintf(out, "Version: %s\n", p.Version)
	fmt.Fprintf(out, "Boards:  %d\n\n", len(p.Boards))

	fmt.Fprintf(out, "%-5s %-24s %7s %6s %6s %6s %6s  %s\n", "Index", "Board", "Devices", "Traces", "Vias", "Planes", "Holes", "Size")
	fmt.Fprintln(out, "──────────────────────────────────────────────────────────────────────────────────")
	for i, b := range p.Boards {
		var traces, vias int
		for _, seg := range b.NetSegments {
			traces += len(seg.Traces)
			vias += len(seg.Vias)
		}
		size := "-"
		if bb := b.BoundingBox(); !bb.IsEmpty() {
			size = fmt.Sprintf("%.2f x %.2f mm", bb.Width().ToMm(), bb.Height().ToMm())
		}
		fmt.Fprintf(out, "%-5d %-24s %7d %6d %6d %6d %6d  %s\n",
			i, b.Name, len(b.Devices), traces, vias, len(b.Planes), len(b.Holes), size)
	}

	if showNets {
		for _, b := range p.Boards {
			fmt.Fprintln(out)
			listNets(out, b)
		}
	}
	return nil
}

type netCounts struct {
	pads, traces, vias int
}

func listNets(out io.Writer, b *board.Board) {
	counts := map[uuid.UUID]*netCounts{}
	get := func(id uuid.UUID) *netCounts {
		c, ok := counts[id]
		if !ok {
			c = &netCounts{}
			counts[id] = c
		}
		return c
	}
	for _, d := range b.Devices {
		for _, pad := range d.Pads {
			if net := b.PadNet(d, pad); net != nil {
				get(*net).pads++
			}
		}
	}
	for _, seg := range b.NetSegments {
		if seg.Net == nil {
			continue
		}
		c := get(*seg.Net)
		c.traces += len(seg.Traces)
		c.vias += len(seg.Vias)
	}

	names := make([]string, 0, len(counts))
	byName := make(map[string]*netCounts, len(counts))
	for id, c := range counts {
		name := b.NetName(&id)
		names = append(names, name)
		byName[name] = c
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Board '%s': %d nets\n\n", b.Name, len(names))
	fmt.Fprintf(out, "%-30s %6s %6s %6s\n", "Net Name", "Pads", "Traces", "Vias")
	fmt.Fprintln(out, "─────────────────────────────────────────────────────────")
	for _, name := range names {
		c := byName[name]
		fmt.Fprintf(out, "%-30s %6d %6d %6d\n", name, c.pads, c.traces, c.vias)
	}
}
