package store

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	idNodeOnce sync.Once
	idNode     *snowflake.Node
	idNodeErr  error
)

// newID generates a cluster-unique int64 identifier. The node number comes
// from SNOWFLAKE_NODE_ID so multiple workers never collide; unset it defaults
// to node 1, which is fine for single-node deployments.
func newID() (int64, error) {
	idNodeOnce.Do(func() {
		nodeID := int64(1)
		if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				idNodeErr = fmt.Errorf("invalid SNOWFLAKE_NODE_ID %q: %w", raw, err)
				return
			}
			nodeID = parsed
		}
		idNode, idNodeErr = snowflake.NewNode(nodeID)
	})
	if idNodeErr != nil {
		return 0, idNodeErr
	}
	return idNode.Generate().Int64(), nil
}
