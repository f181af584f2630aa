package overpass

import (
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/osm"

	"github.com/couchcryptid/storm-data-evacuation/internal/graph"
)

// ErrEmptyNetwork is returned when a response holds no usable road segment.
var ErrEmptyNetwork = errors.New("overpass returned no road segments")

// BuildGraph decodes an OSM XML document and builds a graph with one road
// junction per referenced node and one edge per consecutive node pair of
// every way. Edge base lengths are haversine metres.
func BuildGraph(payload []byte) (*graph.Graph, error) {
	var doc osm.OSM
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode osm xml: %w", err)
	}

	positions := make(map[osm.NodeID]orb.Point, len(doc.Nodes))
	for _, n := range doc.Nodes {
		positions[n.ID] = n.Point()
	}

	g := graph.New()
	for _, w := range doc.Ways {
		if w.Tags.Find("highway") == "" {
			continue
		}
		var prev osm.NodeID
		for _, wn := range w.Nodes {
			pos, ok := positions[wn.ID]
			if !ok {
				// Incomplete way: restart the chain after the gap.
				prev = 0
				continue
			}
			if _, exists := g.Node(int64(wn.ID)); !exists {
				g.AddNode(graph.Node{ID: int64(wn.ID), Pos: pos, Kind: graph.RoadJunction})
			}
			if prev != 0 {
				length := geo.Distance(positions[prev], pos)
				if err := g.AddEdge(int64(prev), int64(wn.ID), length); err != nil {
					return nil, err
				}
			}
			prev = wn.ID
		}
	}

	if g.EdgeCount() == 0 {
		return nil, ErrEmptyNetwork
	}
	return g, nil
}
