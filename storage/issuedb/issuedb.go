// Package issuedb keeps track of the serial numbers handed out during a
// single generation run.
package issuedb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

var ErrNotExist = errors.New("issuedb: Entry does not exist.")

// Serials other than the root's are drawn from [MinSerial, MaxSerial].
const (
	RootSerial = 1
	MinSerial  = 100
	MaxSerial  = 40000000
)

type Entry struct {
	SerialNumber int64  `json:"sn"`
	Name         string `json:"name"`
	State        State  `json:"state"`
}

func RandInt63(randr io.Reader) (n int64) {
	if err := binary.Read(randr, binary.LittleEndian, &n); err != nil {
		panic(err)
	}
	if n < 0 {
		n = -n
	}
	if n < 0 {
		// -MinInt64 overflows
		n = 0
	}
	return
}

// IssueDB is not safe for concurrent use; generation is sequential.
type IssueDB struct {
	randr   io.Reader
	entries map[int64]*Entry
}

func New(randr io.Reader) *IssueDB {
	return &IssueDB{
		randr:   randr,
		entries: make(map[int64]*Entry),
	}
}

func (db *IssueDB) Query(n int64) (Entry, error) {
	e, ok := db.entries[n]
	if !ok {
		return Entry{}, ErrNotExist
	}
	return *e, nil
}

func (db *IssueDB) reserve(n int64, name string) {
	db.entries[n] = &Entry{SerialNumber: n, Name: name, State: IssueInProgress}
}

// AllocateRootSerialNumber reserves the fixed serial of the root certificate.
func (db *IssueDB) AllocateRootSerialNumber(name string) (int64, error) {
	if _, err := db.Query(RootSerial); err == nil {
		return -1, fmt.Errorf("issuedb: root serial already allocated")
	}
	db.reserve(RootSerial, name)
	return RootSerial, nil
}

// AllocateSerialNumber draws a random serial that is unique within this db.
func (db *IssueDB) AllocateSerialNumber(name string) (int64, error) {
	const span = MaxSerial - MinSerial + 1
	if len(db.entries) >= span {
		return -1, errors.New("issuedb: serial number space exhausted")
	}

	var n int64
	for {
		n = MinSerial + RandInt63(db.randr)%span

		_, err := db.Query(n)
		if err != nil {
			if errors.Is(err, ErrNotExist) {
				break
			}
			return -1, err
		}
		// if err == nil {
		//   there's already an entry, so continue search for next num.
		// }
	}

	db.reserve(n, name)
	return n, nil
}

func (db *IssueDB) IssueCertificate(n int64) error {
	e, ok := db.entries[n]
	if !ok {
		return ErrNotExist
	}
	if err := validateStateTransfer(e.State, ActiveCertificate); err != nil {
		return err
	}
	e.State = ActiveCertificate
	return nil
}

// Entries returns all entries ordered by serial number.
func (db *IssueDB) Entries() []Entry {
	es := make([]Entry, 0, len(db.entries))
	for _, e := range db.entries {
		es = append(es, *e)
	}
	sort.Slice(es, func(i, j int) bool { return es[i].SerialNumber < es[j].SerialNumber })
	return es
}

func (db *IssueDB) WriteJSON(path string) error {
	bs, err := json.MarshalIndent(db.Entries(), "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, bs, 0644); err != nil {
		return fmt.Errorf("Failed to write issuedb json to %q: %w", path, err)
	}
	return nil
}
