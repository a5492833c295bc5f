package loader

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

// ParseGraph reads the line-oriented graph format:
//
//	# comment
//	node <id> [x y]
//	edge <id> <from> <to> <weight>
//	signal <node> <edge> [<edge> ...]
//	vehicle <id> <source> <destination>
//
// Blank lines and text after '#' are ignored. Only syntax is checked here;
// duplicate ids and dangling references surface in Scenario.Build.
func ParseGraph(r io.Reader) (*Scenario, error) {
	s := &Scenario{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := parseLine(s, fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseLine(s *Scenario, fields []string) error {
	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case "node":
		if len(args) != 1 && len(args) != 3 {
			return fmt.Errorf("%w: node wants <id> [x y], got %d fields", ErrSyntax, len(args))
		}
		id, err := parseInt(args[0])
		if err != nil {
			return err
		}
		var pos orb.Point
		if len(args) == 3 {
			if pos[0], err = parseFloat(args[1]); err != nil {
				return err
			}
			if pos[1], err = parseFloat(args[2]); err != nil {
				return err
			}
		}
		s.Nodes = append(s.Nodes, core.Node{ID: core.NodeID(id), Pos: pos})

	case "edge":
		if len(args) != 4 {
			return fmt.Errorf("%w: edge wants <id> <from> <to> <weight>, got %d fields", ErrSyntax, len(args))
		}
		ids, err := parseInts(args[:3])
		if err != nil {
			return err
		}
		w, err := parseFloat(args[3])
		if err != nil {
			return err
		}
		s.Edges = append(s.Edges, core.Edge{
			ID:     core.EdgeID(ids[0]),
			From:   core.NodeID(ids[1]),
			To:     core.NodeID(ids[2]),
			Weight: w,
		})

	case "signal":
		if len(args) < 1 {
			return fmt.Errorf("%w: signal wants <node> <edge>...", ErrSyntax)
		}
		ids, err := parseInts(args)
		if err != nil {
			return err
		}
		spec := SignalSpec{Node: core.NodeID(ids[0])}
		for _, e := range ids[1:] {
			spec.Approaches = append(spec.Approaches, core.EdgeID(e))
		}
		s.Signals = append(s.Signals, spec)

	case "vehicle":
		if len(args) != 3 {
			return fmt.Errorf("%w: vehicle wants <id> <source> <destination>", ErrSyntax)
		}
		ids, err := parseInts(args)
		if err != nil {
			return err
		}
		s.Vehicles = append(s.Vehicles, VehicleSpec{
			ID:          core.VehicleID(ids[0]),
			Source:      core.NodeID(ids[1]),
			Destination: core.NodeID(ids[2]),
		})

	default:
		return fmt.Errorf("%w: unknown directive %q", ErrSyntax, fields[0])
	}
	return nil
}

func parseInt(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad integer %q", ErrSyntax, s)
	}
	return v, nil
}

func parseInts(ss []string) ([]int, error) {
	out := make([]int, len(ss))
	for i, s := range ss {
		v, err := parseInt(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: bad number %q", ErrSyntax, s)
	}
	return v, nil
}

// LoadGraphFile parses a graph description from disk.
func LoadGraphFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := ParseGraph(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteGraph writes the nodes, edges, signals and vehicles of s in the
// line-oriented format.
func WriteGraph(w io.Writer, s *Scenario) error {
	bw := bufio.NewWriter(w)
	if s.Name != "" {
		fmt.Fprintf(bw, "# %s\n", s.Name)
	}
	for _, n := range s.Nodes {
		fmt.Fprintf(bw, "node %d %s %s\n", n.ID, fmtFloat(n.Pos[0]), fmtFloat(n.Pos[1]))
	}
	for _, e := range s.Edges {
		fmt.Fprintf(bw, "edge %d %d %d %s\n", e.ID, e.From, e.To, fmtFloat(e.Weight))
	}
	for _, sig := range s.Signals {
		fmt.Fprintf(bw, "signal %d", sig.Node)
		for _, a := range sig.Approaches {
			fmt.Fprintf(bw, " %d", a)
		}
		fmt.Fprintln(bw)
	}
	for _, v := range s.Vehicles {
		fmt.Fprintf(bw, "vehicle %d %d %d\n", v.ID, v.Source, v.Destination)
	}
	return bw.Flush()
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
