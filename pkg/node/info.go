package node

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/denisbrodbeck/machineid"
	"github.com/srand/jolt/node/pkg/utils"
)

// Labels are key=value properties describing a node.
type Labels map[string]string

// ParseLabels parses a list of key=value strings.
func ParseLabels(list []string) (Labels, error) {
	labels := Labels{}
	for _, item := range list {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: invalid label: %s", utils.ErrBadRequest, item)
		}
		labels[key] = value
	}
	return labels, nil
}

// DefaultLabels returns the architecture, operating system, number of
// cpus, hostname and a unique machine id of the host.
func DefaultLabels() Labels {
	labels := Labels{
		"node.arch": runtime.GOARCH,
		"node.os":   runtime.GOOS,
		"node.cpus": fmt.Sprint(runtime.NumCPU()),
	}
	if id, err := machineid.ProtectedID("jolt-node"); err == nil {
		labels["node.id"] = id
	}
	if hostname, err := os.Hostname(); err == nil {
		labels["node.hostname"] = hostname
	}
	return labels
}

// Merge returns a copy of l with the labels of other added.
func (l Labels) Merge(other Labels) Labels {
	merged := Labels{}
	for k, v := range l {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

func (l Labels) String() string {
	keys := make([]string, 0, len(l))
	for key := range l {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	data := strings.Builder{}
	for _, key := range keys {
		fmt.Fprintf(&data, "%s=%s\n", key, l[key])
	}
	return data.String()
}
