package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitshell/packages/logutil"
	bolt "go.etcd.io/bbolt"
)

var logger = logutil.GetLogger("[store] ")

const bucketCmd = "cmd"

// ErrNoMatchingCmd is returned when a command lookup finds nothing.
var ErrNoMatchingCmd = errors.New("no matching command line")

// Cmd is an entry in the command history.
type Cmd struct {
	Text string `json:"text"`
	Seq  int    `json:"seq"`
}

// History records the lines entered at the prompt.
type History interface {
	AddCmd(text string) (int, error)
	Cmd(seq int) (string, error)
	// LastCmds returns up to n of the most recent commands, oldest first.
	LastCmds(n int) ([]Cmd, error)
	Close() error
}

// BoltHistory is a History stored in a bbolt database.
type BoltHistory struct {
	db *bolt.DB
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*BoltHistory, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCmd))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history: %w", err)
	}

	logger.Println("opened history", path)
	return &BoltHistory{db: db}, nil
}

// AddCmd adds a new command to the history and returns its sequence number.
func (h *BoltHistory) AddCmd(text string) (int, error) {
	var seq uint64
	err := h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCmd))
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), []byte(text))
	})
	return int(seq), err
}

// Cmd queries the command with the specified sequence number.
func (h *BoltHistory) Cmd(seq int) (string, error) {
	var text string
	err := h.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketCmd)).Get(marshalSeq(uint64(seq)))
		if v == nil {
			return ErrNoMatchingCmd
		}
		text = string(v)
		return nil
	})
	return text, err
}

func (h *BoltHistory) LastCmds(n int) ([]Cmd, error) {
	var cmds []Cmd
	err := h.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketCmd)).Cursor()
		for k, v := c.Last(); k != nil && len(cmds) < n; k, v = c.Prev() {
			cmds = append(cmds, Cmd{Text: string(v), Seq: int(unmarshalSeq(k))})
		}
		return nil
	})
	reverse(cmds)
	return cmds, err
}

func (h *BoltHistory) Close() error {
	return h.db.Close()
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}

func reverse(cmds []Cmd) {
	for i, j := 0, len(cmds)-1; i < j; i, j = i+1, j-1 {
		cmds[i], cmds[j] = cmds[j], cmds[i]
	}
}

// MemoryHistory is a History that is lost when the process exits.
type MemoryHistory struct {
	mu   sync.Mutex
	cmds []string
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) AddCmd(text string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cmds = append(h.cmds, text)
	return len(h.cmds), nil
}

func (h *MemoryHistory) Cmd(seq int) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if seq < 1 || seq > len(h.cmds) {
		return "", ErrNoMatchingCmd
	}
	return h.cmds[seq-1], nil
}

func (h *MemoryHistory) LastCmds(n int) ([]Cmd, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	start := len(h.cmds) - max(n, 0)
	if start < 0 {
		start = 0
	}
	cmds := make([]Cmd, 0, len(h.cmds)-start)
	for i := start; i < len(h.cmds); i++ {
		cmds = append(cmds, Cmd{Text: h.cmds[i], Seq: i + 1})
	}
	return cmds, nil
}

func (h *MemoryHistory) Close() error {
	return nil
}
