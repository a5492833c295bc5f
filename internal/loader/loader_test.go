package loader

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/elektrokombinacija/trafficsim/internal/core"
	"github.com/elektrokombinacija/trafficsim/internal/sim"
	"github.com/elektrokombinacija/trafficsim/internal/vehicle"
)

const lineGraph = `
# three nodes in a row
node 1 0 0
node 2 3 0
node 3 7 0   # trailing comment

edge 12 1 2 3
edge 23 2 3 4
signal 2 23
vehicle 1 1 3
`

func quiet() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.SpawnEnabled = false
	return cfg
}

func TestParseGraph(t *testing.T) {
	s, err := ParseGraph(strings.NewReader(lineGraph))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Nodes) != 3 || len(s.Edges) != 2 || len(s.Signals) != 1 || len(s.Vehicles) != 1 {
		t.Fatalf("parsed %+v", s)
	}
	if s.Nodes[2].Pos[0] != 7 {
		t.Errorf("node 3 pos = %v", s.Nodes[2].Pos)
	}
	if e := s.Edges[1]; e.ID != 23 || e.From != 2 || e.To != 3 || e.Weight != 4 {
		t.Errorf("edge = %+v", e)
	}
	if sig := s.Signals[0]; sig.Node != 2 || len(sig.Approaches) != 1 || sig.Approaches[0] != 23 {
		t.Errorf("signal = %+v", sig)
	}
}

func TestParseGraphErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  string
	}{
		{"unknown directive", "node 1\nroad 1 2", "line 2"},
		{"bad id", "node x", "line 1"},
		{"node arity", "node 1 2", "line 1"},
		{"edge arity", "node 1\nnode 2\n\nedge 1 1 2", "line 4"},
		{"bad weight", "edge 1 1 2 heavy", "line 1"},
		{"infinite weight", "node 1\nnode 2\nedge 1 1 2 inf", "line 3"},
		{"NaN position", "node 1 NaN 0", "line 1"},
		{"empty signal", "signal", "line 1"},
		{"vehicle arity", "vehicle 1 2", "line 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGraph(strings.NewReader(tt.input))
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("err = %v, want ErrSyntax", err)
			}
			if !strings.Contains(err.Error(), tt.line) {
				t.Errorf("err %q does not name %s", err, tt.line)
			}
		})
	}
}

func TestBuildFromGraph(t *testing.T) {
	s, err := ParseGraph(strings.NewReader(lineGraph))
	if err != nil {
		t.Fatal(err)
	}
	clock, err := s.Build(quiet())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		clock.Advance()
	}
	v, ok := clock.Vehicle(1)
	if !ok || v.State != vehicle.WaitingAtIntersection {
		t.Fatalf("vehicle after 3 ticks = %+v, %v", v, ok)
	}
	for i := 0; i < 5; i++ {
		clock.Advance()
	}
	if m := clock.Metrics(); m.Arrived != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"duplicate node", "node 1\nnode 1"},
		{"dangling edge", "node 1\nedge 1 1 2 5"},
		{"negative weight", "node 1\nnode 2\nedge 1 1 2 -5"},
		{"vehicle to nowhere", "node 1\nvehicle 1 1 9"},
		{"duplicate vehicle", "node 1\nnode 2\nvehicle 1 1 2\nvehicle 1 2 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseGraph(strings.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.Build(quiet()); !errors.Is(err, ErrRejected) {
				t.Errorf("Build err = %v, want ErrRejected", err)
			}
		})
	}

	s, _ := ParseGraph(strings.NewReader("node 1\nnode 2\nedge 12 1 2 1\nsignal 2 12"))
	if _, err := s.Build(quiet()); !errors.Is(err, sim.ErrNotApproach) {
		t.Errorf("incoming-edge signal err = %v", err)
	}
}

func TestParallelEdgePolicy(t *testing.T) {
	s, _ := ParseGraph(strings.NewReader("node 1\nnode 2\nedge 1 1 2 5\nedge 2 1 2 3"))
	if _, err := s.Network(); err != nil {
		t.Errorf("parallel edges should be allowed by default: %v", err)
	}
	off := false
	s.Sim.AllowParallelEdges = &off
	if _, err := s.Network(); !errors.Is(err, ErrRejected) {
		t.Errorf("parallel edge with policy off: %v", err)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	s := DemoGrid()
	var buf bytes.Buffer
	if err := WriteGraph(&buf, s); err != nil {
		t.Fatal(err)
	}
	back, err := ParseGraph(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Nodes) != 9 || len(back.Edges) != 24 || len(back.Signals) != 9 {
		t.Fatalf("round trip lost data: %d nodes %d edges %d signals", len(back.Nodes), len(back.Edges), len(back.Signals))
	}
	if back.Nodes[4].Pos != s.Nodes[4].Pos {
		t.Errorf("pos %v != %v", back.Nodes[4].Pos, s.Nodes[4].Pos)
	}
}

func TestScenarioJSON(t *testing.T) {
	s := DemoGrid()
	path := filepath.Join(t.TempDir(), "demo.json")
	if err := SaveScenarioFile(path, s); err != nil {
		t.Fatal(err)
	}
	back, err := LoadScenarioFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != s.Name || len(back.Edges) != 24 || back.Sim.SpawnInterval == nil || *back.Sim.SpawnInterval != 20 {
		t.Errorf("loaded %+v", back)
	}

	if _, err := ReadScenario(strings.NewReader(`{"name":"x","bogus":1}`)); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestScenarioApply(t *testing.T) {
	interval, seed, fall := 5, int64(9), false
	s := &Scenario{Sim: SimSpec{SpawnInterval: &interval, Seed: &seed, StartFallThrough: &fall, Green: 10}}
	cfg := s.Apply(sim.DefaultConfig())
	if cfg.SpawnInterval != 5 || cfg.Seed != 9 || cfg.StartFallThrough || cfg.Timing.Green != 10 || cfg.Timing.Yellow != 3 {
		t.Errorf("applied = %+v", cfg)
	}
}

func TestDemoGrid(t *testing.T) {
	clock, err := DemoGrid().Build(sim.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctrl, ok := clock.Controller(5)
	if !ok || len(ctrl.Approaches) != 4 {
		t.Fatalf("node 5 controller = %+v", ctrl)
	}
	net := clock.Network()
	if got := net.ShortestPath(1, 9); len(got) != 5 {
		t.Errorf("ShortestPath(1,9) = %v", got)
	}
	if cost, _ := net.PathCost(net.ShortestPath(1, 9)); cost != 280 {
		t.Errorf("cost 1->9 = %v, want 280", cost)
	}
	if !net.Analyze().Strong() {
		t.Error("demo grid should be strongly connected")
	}

	for i := 0; i < 400; i++ {
		clock.Advance()
	}
	m := clock.Metrics()
	if m.Spawned != 20 || m.Failed != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

const osmFixture = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="45.0000" lon="15.0000" version="1"/>
  <node id="2" lat="45.0010" lon="15.0000" version="1"/>
  <node id="3" lat="45.0010" lon="15.0010" version="1"/>
  <node id="4" lat="45.0020" lon="15.0010" version="1"/>
  <way id="10" version="1">
    <nd ref="1"/>
    <nd ref="2"/>
    <nd ref="3"/>
    <tag k="highway" v="residential"/>
  </way>
  <way id="11" version="1">
    <nd ref="3"/>
    <nd ref="4"/>
    <tag k="highway" v="primary"/>
    <tag k="oneway" v="yes"/>
  </way>
  <way id="12" version="1">
    <nd ref="1"/>
    <nd ref="4"/>
    <tag k="highway" v="footway"/>
  </way>
  <way id="13" version="1">
    <nd ref="2"/>
    <nd ref="4"/>
    <tag k="building" v="yes"/>
  </way>
</osm>`

func TestReadOSM(t *testing.T) {
	s, err := ReadOSM(context.Background(), strings.NewReader(osmFixture), DefaultOSMOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Nodes) != 4 {
		t.Errorf("nodes = %d, want 4", len(s.Nodes))
	}
	// Way 10 is two-way (4 edges), way 11 one-way (1 edge); 12 and 13 skipped.
	if len(s.Edges) != 5 {
		t.Fatalf("edges = %d, want 5: %+v", len(s.Edges), s.Edges)
	}
	// 0.001 degrees of latitude is about 111 m.
	first := s.Edges[0]
	if first.From != 1 || first.To != 2 || math.Abs(first.Weight-111.2/14) > 0.2 {
		t.Errorf("first edge = %+v", first)
	}

	net, err := s.Network()
	if err != nil {
		t.Fatal(err)
	}
	if net.ShortestPath(1, 4) == nil {
		t.Error("4 should be reachable from 1")
	}
	if net.ShortestPath(4, 1) != nil {
		t.Error("one-way street traversed backwards")
	}
}

func TestReadOSMBadOptions(t *testing.T) {
	if _, err := ReadOSM(context.Background(), strings.NewReader(osmFixture), OSMOptions{}); err == nil {
		t.Error("zero MetersPerTick accepted")
	}
}

func TestTrafficCSV(t *testing.T) {
	input := "edge_id,timestamp,density,speed,count\n" +
		"12, 100 ,0.5,13.9,7\n" +
		"# skipped\n" +
		"23,101,0.25,10,3"
	recs, err := ReadTrafficCSV(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []core.TrafficRecord{
		{EdgeID: 12, Timestamp: 100, Density: 0.5, Speed: 13.9, Count: 7},
		{EdgeID: 23, Timestamp: 101, Density: 0.25, Speed: 10, Count: 3},
	}
	if len(recs) != len(want) {
		t.Fatalf("records = %+v", recs)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, recs[i], want[i])
		}
	}

	var buf bytes.Buffer
	if err := WriteTrafficCSV(&buf, recs); err != nil {
		t.Fatal(err)
	}
	back, err := ReadTrafficCSV(&buf)
	if err != nil || len(back) != 2 || back[1] != want[1] {
		t.Errorf("round trip = %+v, %v", back, err)
	}
}

func TestTrafficCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"short row", "12,100,0.5,13.9"},
		{"bad count", "12,100,0.5,13.9,many"},
		{"bad density", "edge_id,timestamp,density,speed,count\n12,100,x,13.9,1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadTrafficCSV(strings.NewReader(tt.input)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "line.json")
	line, err := ParseGraph(strings.NewReader(lineGraph))
	if err != nil {
		t.Fatal(err)
	}
	line.Name = "line"
	if err := SaveScenarioFile(path, line); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr error
	}{
		{"default is demo", Source{}, DemoGrid().Name, nil},
		{"scenario file", Source{Scenario: path}, "line", nil},
		{"conflict", Source{Scenario: path, Graph: path}, "", ErrConflictingSources},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(context.Background(), tt.src)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && s.Name != tt.want {
				t.Errorf("name = %q, want %q", s.Name, tt.want)
			}
		})
	}

	if _, err := Load(context.Background(), Source{Graph: filepath.Join(dir, "missing.txt")}); err == nil {
		t.Error("missing graph file loaded")
	}
}
