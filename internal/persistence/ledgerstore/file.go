package ledgerstore

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

const fileVersion = 1

type Header struct {
	Version int    `json:"version"`
	SavedAt string `json:"saved_at"`
	Entries int    `json:"entries"`
}

type LedgerV1 struct {
	Header Header
	Counts map[string]int
}

// FileStore keeps the ledger in one zstd-compressed file: a JSON header line
// followed by a gob body. Saves go through a temp file and rename.
type FileStore struct {
	path string
}

func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Path() string { return s.path }

// Load returns an empty ledger when the file does not exist.
func (s *FileStore) Load() (map[string]int, error) {
	l, err := ReadLedger(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, err
	}
	return clean(l.Counts), nil
}

func (s *FileStore) Save(counts map[string]int) error {
	counts = clean(counts)
	l := LedgerV1{
		Header: Header{
			Version: fileVersion,
			SavedAt: time.Now().UTC().Format(time.RFC3339Nano),
			Entries: len(counts),
		},
		Counts: counts,
	}
	tmp := s.path + ".tmp"
	if err := WriteLedger(tmp, l); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Close() error { return nil }

func WriteLedger(path string, l LedgerV1) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(l.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&l); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadLedger(path string) (LedgerV1, error) {
	var l LedgerV1
	f, err := os.Open(path)
	if err != nil {
		return l, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return l, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return l, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return l, fmt.Errorf("header: %w", err)
	}
	if h.Version != fileVersion {
		return l, fmt.Errorf("unsupported ledger version %d", h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&l); err != nil {
		return l, fmt.Errorf("gob decode: %w", err)
	}
	if l.Counts == nil {
		l.Counts = map[string]int{}
	}
	return l, nil
}
