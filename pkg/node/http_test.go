package node

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/srand/jolt/node/pkg/journal"
	"github.com/srand/jolt/node/pkg/log"
)

func (s *NodeTestSuite) get(r *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func (s *NodeTestSuite) TestHttpHandler() {
	j, err := journal.New(afero.NewMemMapFs(), 0, log.Discard())
	s.Require().NoError(err)

	n := s.node(Options{Journal: j, Labels: Labels{"rack": "a"}})
	n.Data().Set("x", 1)
	n.Compute(s.ctx(), "y", []any{"inc", "x"}, nil)

	r := echo.New()
	NewHttpHandler(n, r)

	rec := s.get(r, "/status")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("OK", rec.Body.String())

	rec = s.get(r, "/keys")
	s.Equal(http.StatusOK, rec.Code)
	keys := []string{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &keys))
	s.Equal([]string{"x", "y"}, keys)

	rec = s.get(r, "/stats")
	s.Equal(http.StatusOK, rec.Code)
	info := Info{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &info))
	s.Equal(n.Address(), info.Address)
	s.Equal("cbor", info.Serializer)
	s.Equal(2, info.Keys)
	s.Equal("a", info.Labels["rack"])
	s.Equal(int64(1), info.Stats.Computed)

	rec = s.get(r, "/jobs")
	s.Equal(http.StatusOK, rec.Code)
	entries := []journal.Entry{}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &entries))
	s.Require().Len(entries, 1)
	s.Equal("y", entries[0].Key)
	s.Equal("OK", entries[0].Status)
	s.Equal(n.Address(), entries[0].Node)

	rec = s.get(r, "/metrics")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "jolt_node_keys 2\n")
	s.Contains(rec.Body.String(), "jolt_node_computations_passed_total 1\n")
	s.Contains(rec.Body.String(), "# TYPE jolt_node_requests_total counter\n")

	s.Require().NoError(n.Close())
	rec = s.get(r, "/status")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}
