// Package journal records the outcome of every computation a node runs.
package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/utils"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// Name of the active journal file.
	FileName = "jobs.jsonl"

	// Name the active file is rotated to when it exceeds the size limit.
	RotatedFileName = FileName + ".1"
)

// Entry is one journaled job outcome.
type Entry struct {
	Time     time.Time `json:"time"`
	Node     string    `json:"node"`
	Key      string    `json:"key"`
	Duration float64   `json:"duration"`
	Status   string    `json:"status"`
}

// Records are single line protojson encoded structs.
var lineFormat = protojson.MarshalOptions{Multiline: false}

func (e Entry) marshal() ([]byte, error) {
	record, err := structpb.NewStruct(map[string]any{
		"time":     e.Time.UTC().Format(time.RFC3339Nano),
		"node":     e.Node,
		"key":      e.Key,
		"duration": e.Duration,
		"status":   e.Status,
	})
	if err != nil {
		return nil, err
	}

	line, err := lineFormat.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

func unmarshalEntry(line []byte) (Entry, error) {
	record := &structpb.Struct{}
	if err := protojson.Unmarshal(line, record); err != nil {
		return Entry{}, err
	}

	fields := record.GetFields()
	entry := Entry{
		Node:     fields["node"].GetStringValue(),
		Key:      fields["key"].GetStringValue(),
		Duration: fields["duration"].GetNumberValue(),
		Status:   fields["status"].GetStringValue(),
	}

	if ts := fields["time"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Entry{}, err
		}
		entry.Time = t
	}
	return entry, nil
}

// Journal is a sink for job outcome records.
type Journal interface {
	// Append an entry.
	Record(entry Entry) error

	// Entries returns all retained entries, oldest first.
	Entries() ([]Entry, error)

	Close() error
}

type fileJournal struct {
	mu      sync.Mutex
	fs      afero.Fs
	file    afero.File
	size    int64
	maxSize int64
	logger  *log.Logger
}

// New opens a journal on fs, appending to an existing file.
// When maxSize is positive the file is rotated once it grows past it,
// keeping a single previous generation.
func New(fs afero.Fs, maxSize int64, logger *log.Logger) (Journal, error) {
	if logger == nil {
		logger = log.Default()
	}

	j := &fileJournal{
		fs:      fs,
		maxSize: maxSize,
		logger:  logger,
	}

	if err := j.open(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *fileJournal) open() error {
	file, err := j.fs.OpenFile(FileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	st, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	j.file = file
	j.size = st.Size()
	return nil
}

func (j *fileJournal) rotate() error {
	if err := j.file.Close(); err != nil {
		return err
	}
	j.file = nil

	if err := j.fs.Rename(FileName, RotatedFileName); err != nil {
		return err
	}

	j.logger.Debug("rot - journal -", RotatedFileName)
	return j.open()
}

func (j *fileJournal) Record(entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	line, err := entry.marshal()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return utils.ErrClosed
	}

	if j.maxSize > 0 && j.size > 0 && j.size+int64(len(line)) > j.maxSize {
		if err := j.rotate(); err != nil {
			return err
		}
	}

	n, err := j.file.Write(line)
	j.size += int64(n)
	return err
}

func (j *fileJournal) Entries() ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries := []Entry{}
	for _, name := range []string{RotatedFileName, FileName} {
		more, err := j.read(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, more...)
	}
	return entries, nil
}

func (j *fileJournal) read(name string) ([]Entry, error) {
	file, err := j.fs.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return decode(file)
}

func decode(r io.Reader) ([]Entry, error) {
	entries := []Entry{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}

		entry, err := unmarshalEntry(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%w: journal: %v", utils.ErrParse, err)
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

func (j *fileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
