package uid

import (
	"math/rand/v2"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered int64 identifiers.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a Snowflake generator with a random node number.
func NewSnowflake() (*Snowflake, error) {
	node, err := snowflake.NewNode(rand.Int64N(1024))
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

// Generate returns a new snowflake id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
