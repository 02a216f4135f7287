package node

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/node/pkg/journal"
	"github.com/srand/jolt/node/pkg/protocol"
)

// Info describes a running node.
type Info struct {
	Address     string            `json:"address"`
	Coordinator string            `json:"coordinator"`
	Serializer  string            `json:"serializer"`
	Uptime      float64           `json:"uptime"`
	Threads     int               `json:"threads"`
	Active      int64             `json:"active"`
	Queued      int64             `json:"queued"`
	Keys        int               `json:"keys"`
	Labels      map[string]string `json:"labels"`
	Stats       Stats             `json:"stats"`
}

func (n *Node) Info() Info {
	pool := n.PoolStats()
	return Info{
		Address:     n.address,
		Coordinator: n.opts.CoordinatorUri,
		Serializer:  n.codec.Name(),
		Uptime:      n.Uptime().Seconds(),
		Threads:     pool.Workers,
		Active:      pool.Active,
		Queued:      pool.Queued,
		Keys:        n.data.Len(),
		Labels:      n.labels,
		Stats:       n.Stats(),
	}
}

func NewHttpHandler(n *Node, r *echo.Echo) {
	r.GET("/status", func(c echo.Context) error {
		if n.Closed() {
			return c.String(http.StatusServiceUnavailable, "closed")
		}
		return c.String(http.StatusOK, protocol.StatusOK)
	})

	r.GET("/keys", func(c echo.Context) error {
		return c.JSON(http.StatusOK, n.data.Keys())
	})

	r.GET("/stats", func(c echo.Context) error {
		return c.JSON(http.StatusOK, n.Info())
	})

	r.GET("/jobs", func(c echo.Context) error {
		if n.opts.Journal == nil {
			return c.JSON(http.StatusOK, []journal.Entry{})
		}

		entries, err := n.opts.Journal.Entries()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, entries)
	})

	r.GET("/metrics", func(c echo.Context) error {
		stats := n.Stats()
		pool := n.PoolStats()

		metrics := strings.Builder{}
		metric := func(name, kind, help string, value int64) {
			fmt.Fprintf(&metrics, "# TYPE %s %s\n", name, kind)
			fmt.Fprintf(&metrics, "# HELP %s %s\n", name, help)
			fmt.Fprintf(&metrics, "%s %d\n", name, value)
		}

		metric("jolt_node_keys", "gauge", "The number of keys in the local data store.", int64(n.data.Len()))
		metric("jolt_node_slots", "gauge", "The number of execution slots.", int64(pool.Workers))
		metric("jolt_node_jobs_running", "gauge", "The number of jobs currently executing.", pool.Active)
		metric("jolt_node_jobs_queued", "gauge", "The number of jobs waiting for a slot.", pool.Queued)
		metric("jolt_node_requests_total", "counter", "The total number of received requests.", stats.Received)
		metric("jolt_node_requests_passed_total", "counter", "The total number of successful requests.", stats.Succeeded)
		metric("jolt_node_requests_failed_total", "counter", "The total number of failed requests.", stats.Failed)
		metric("jolt_node_requests_unknown_total", "counter", "The total number of requests for unknown functions.", stats.NotFound)
		metric("jolt_node_requests_rejected_total", "counter", "The total number of requests rejected by a saturated pool.", stats.Rejected)
		metric("jolt_node_computations_passed_total", "counter", "The total number of successful computations.", stats.Computed)
		metric("jolt_node_computations_failed_total", "counter", "The total number of failed computations.", stats.ComputeFailed)
		metric("jolt_node_collected_total", "counter", "The total number of values fetched from peers.", stats.Collected)

		return c.String(http.StatusOK, metrics.String())
	})
}
