// Package id generates unique int64 identifiers for rows created by
// herald jobs (notifications, pending emails, digest markers).
package id

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var node *snowflake.Node

// Init must be called once at startup before New. nodeID distinguishes
// concurrently running job instances.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("create snowflake node: %w", err)
	}
	node = n
	return nil
}

// New returns a new unique ID. Panics if Init was not called.
func New() int64 {
	return node.Generate().Int64()
}
