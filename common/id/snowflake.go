package id

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator hands out time-ordered int64 IDs that are unique across processes as long
// as every process is started with a distinct node ID (server=1, worker=2+, scheduler CLI=900+).
type Generator struct {
	node *snowflake.Node
}

func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("creating snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns a new ID as int64, used for database primary keys.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}

// NextString returns a new ID in its decimal string form, used for queue task IDs.
func (g *Generator) NextString() string {
	return g.node.Generate().String()
}
