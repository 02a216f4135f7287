package journal

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type JournalTestSuite struct {
	suite.Suite
	fs afero.Fs
}

func (s *JournalTestSuite) SetupTest() {
	s.fs = afero.NewMemMapFs()
}

func (s *JournalTestSuite) TestRecordEntries() {
	j, err := New(s.fs, 0, log.Discard())
	s.Require().NoError(err)
	defer j.Close()

	s.Require().NoError(j.Record(Entry{Node: "tcp://a:1", Key: "z", Duration: 0.5, Status: "OK"}))
	s.Require().NoError(j.Record(Entry{Node: "tcp://a:1", Key: "w", Status: "division by zero"}))

	entries, err := j.Entries()
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("z", entries[0].Key)
	s.Equal(0.5, entries[0].Duration)
	s.False(entries[0].Time.IsZero())
	s.Equal("division by zero", entries[1].Status)
}

func (s *JournalTestSuite) TestReopenAppends() {
	j, err := New(s.fs, 0, log.Discard())
	s.Require().NoError(err)
	s.Require().NoError(j.Record(Entry{Key: "a"}))
	s.Require().NoError(j.Close())

	assert.ErrorIs(s.T(), j.Record(Entry{Key: "b"}), utils.ErrClosed)

	j, err = New(s.fs, 0, log.Discard())
	s.Require().NoError(err)
	defer j.Close()
	s.Require().NoError(j.Record(Entry{Key: "c"}))

	entries, err := j.Entries()
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("a", entries[0].Key)
	s.Equal("c", entries[1].Key)
}

func (s *JournalTestSuite) TestRotation() {
	j, err := New(s.fs, 512, log.Discard())
	s.Require().NoError(err)
	defer j.Close()

	for i := 0; i < 20; i++ {
		s.Require().NoError(j.Record(Entry{Key: fmt.Sprint("key-", i), Status: "OK"}))
	}

	exists, err := afero.Exists(s.fs, RotatedFileName)
	s.Require().NoError(err)
	s.True(exists)

	st, err := s.fs.Stat(FileName)
	s.Require().NoError(err)
	s.LessOrEqual(st.Size(), int64(512))

	entries, err := j.Entries()
	s.Require().NoError(err)
	s.Less(len(entries), 20)
	s.Equal("key-19", entries[len(entries)-1].Key)
}

func (s *JournalTestSuite) TestConcurrentRecords() {
	j, err := New(s.fs, 0, log.Discard())
	s.Require().NoError(err)
	defer j.Close()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(s.T(), j.Record(Entry{Key: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()

	entries, err := j.Entries()
	s.Require().NoError(err)
	s.Len(entries, 32)
}

func (s *JournalTestSuite) TestLineFormat() {
	j, err := New(s.fs, 0, log.Discard())
	s.Require().NoError(err)
	defer j.Close()

	at := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)
	s.Require().NoError(j.Record(Entry{Time: at, Node: "tcp://a:1", Key: "z", Duration: 1.25, Status: "OK"}))

	data, err := afero.ReadFile(s.fs, FileName)
	s.Require().NoError(err)
	s.Equal(1, bytes.Count(data, []byte("\n")))

	record := &structpb.Struct{}
	s.Require().NoError(protojson.Unmarshal(bytes.TrimSpace(data), record))
	s.Equal("z", record.GetFields()["key"].GetStringValue())
	s.Equal(1.25, record.GetFields()["duration"].GetNumberValue())

	entries, err := j.Entries()
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(at.Equal(entries[0].Time))
	s.Equal(Entry{Time: entries[0].Time, Node: "tcp://a:1", Key: "z", Duration: 1.25, Status: "OK"}, entries[0])
}

func (s *JournalTestSuite) TestCorruptLine() {
	s.Require().NoError(afero.WriteFile(s.fs, FileName, []byte("{not json\n"), 0666))

	j, err := New(s.fs, 0, log.Discard())
	s.Require().NoError(err)
	defer j.Close()

	_, err = j.Entries()
	s.ErrorIs(err, utils.ErrParse)
}

func TestJournal(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}

func TestConfig(t *testing.T) {
	c := Config{}
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Validate())

	j, err := c.Open(log.Discard())
	require.NoError(t, err)
	assert.Nil(t, j)

	c = Config{StorageType: "disk"}
	assert.Error(t, c.Validate())

	c = Config{StorageType: "tape"}
	assert.Error(t, c.Validate())

	c = Config{StorageType: "memory", MaxSize_: "1MiB"}
	assert.NoError(t, c.Validate())
	assert.Equal(t, int64(1<<20), c.MaxSize())

	j, err = c.Open(log.Discard())
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.NoError(t, j.Close())
}
