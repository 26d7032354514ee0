package service

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// refGenerator produces the human-readable, time-derived references
// stamped on orders and invoices, e.g. ORD-20261002-8F3KQJ2M1 and the
// matching INV- reference.
type refGenerator struct {
	node *snowflake.Node
}

func newRefGenerator() (*refGenerator, error) {
	nodeID := int64(1)
	if v := os.Getenv("SNOWFLAKE_NODE_ID"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SNOWFLAKE_NODE_ID: %w", err)
		}
		nodeID = parsed
	}

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to init snowflake node: %w", err)
	}
	return &refGenerator{node: node}, nil
}

func (g *refGenerator) OrderRef(now time.Time) string {
	return "ORD-" + now.Format("20060102") + "-" + strings.ToUpper(g.node.Generate().Base36())
}

// InvoiceRef derives the invoice reference from the order reference so the
// two are trivially correlated.
func (g *refGenerator) InvoiceRef(orderRef string) string {
	return "INV-" + strings.TrimPrefix(orderRef, "ORD-")
}
