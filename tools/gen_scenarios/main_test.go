package main

import (
	"reflect"
	"testing"

	"github.com/elektrokombinacija/trafficsim/internal/sim"
)

func params() GridParams {
	return GridParams{
		Seed: 3, Width: 4, Height: 3, Spacing: 100,
		WeightMin: 40, WeightMax: 120, Vehicles: 10, Spawn: 20,
	}
}

func TestGenerateGridShape(t *testing.T) {
	s := generateGrid(params())
	// 4x3 grid: 3*3 horizontal + 4*2 vertical roads, both directions.
	if len(s.Nodes) != 12 || len(s.Edges) != 34 || len(s.Vehicles) != 10 {
		t.Fatalf("nodes %d edges %d vehicles %d", len(s.Nodes), len(s.Edges), len(s.Vehicles))
	}
	for _, e := range s.Edges {
		if e.Weight < 40 || e.Weight > 120 {
			t.Errorf("edge %d weight %v out of range", e.ID, e.Weight)
		}
	}
	for _, v := range s.Vehicles {
		if v.Source == v.Destination {
			t.Errorf("vehicle %d has source == destination", v.ID)
		}
	}
	if !reflect.DeepEqual(s, generateGrid(params())) {
		t.Error("same seed produced different scenarios")
	}
}

func TestGenerateGridOneWay(t *testing.T) {
	p := params()
	p.OneWay = 1
	s := generateGrid(p)
	if len(s.Edges) != 17 {
		t.Errorf("all one-way grid has %d edges, want 17", len(s.Edges))
	}
}

func TestGeneratedGridBuilds(t *testing.T) {
	s := generateGrid(params())
	clock, err := s.Build(sim.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if got := len(clock.Controllers()); got != 12 {
		t.Errorf("controllers = %d, want 12", got)
	}
	if clock.ActiveVehicles() != 10 {
		t.Errorf("active vehicles = %d", clock.ActiveVehicles())
	}
	if clock.Config().SpawnInterval != 20 || clock.Config().Seed != 3 {
		t.Errorf("sim overrides not applied: %+v", clock.Config())
	}
}
