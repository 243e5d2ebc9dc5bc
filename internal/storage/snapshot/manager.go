package snapshot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/bloomgate-go/internal/core/domain"
)

// Magic bytes identify snapshot files.
var magicBytes = []byte("BGFSNAP1")

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	DefaultRetentionCount = 5
)

type snapshotHeader struct {
	Version     int    `json:"version"`
	CreatedAt   int64  `json:"created_at"`
	NodeID      string `json:"node_id,omitempty"`
	FilterCount uint64 `json:"filter_count"`
	Encrypted   bool   `json:"encrypted"`
}

type snapshotRecord struct {
	Name      string  `json:"name"`
	Capacity  uint64  `json:"capacity"`
	FPP       float64 `json:"fpp"`
	CreatedAt int64   `json:"created_at"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Filter    []byte  `json:"filter"`
}

func recordFromState(st domain.State) snapshotRecord {
	return snapshotRecord{
		Name:      st.Name,
		Capacity:  st.Capacity,
		FPP:       st.FPP,
		CreatedAt: st.CreatedAt.UnixMilli(),
		Hits:      st.Hits,
		Misses:    st.Misses,
		Filter:    st.FilterData,
	}
}

func (r snapshotRecord) toState() domain.State {
	return domain.State{
		Name:       r.Name,
		Capacity:   r.Capacity,
		FPP:        r.FPP,
		CreatedAt:  time.UnixMilli(r.CreatedAt).UTC(),
		Hits:       r.Hits,
		Misses:     r.Misses,
		FilterData: r.Filter,
	}
}

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
	ErrNoSnapshots      = errors.New("snapshot: no snapshots available")
)

// Config configures the snapshot manager.
type Config struct {
	Dir string

	RetentionCount int

	Cipher Cipher
	NodeID string
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
	}
}

type Manager struct {
	cfg    Config
	cipher Cipher
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	if cfg.RetentionCount == 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}

	return &Manager{
		cfg:    cfg,
		cipher: cfg.Cipher,
	}, nil
}

// Info contains metadata about a snapshot file.
type Info struct {
	ID          string `json:"id"`
	FilterCount int64  `json:"filter_count"`
	CreatedAt   int64  `json:"created_at"`
	Size        int64  `json:"size"`
	Path        string `json:"path"`
	Checksum    string `json:"checksum"`
	NodeID      string `json:"node_id,omitempty"`
}

// Create writes a new snapshot file holding the given filter states.
func (m *Manager) Create(states []domain.State) (*Info, error) {
	now := time.Now()
	id := m.generateID(now)

	tempPath := filepath.Join(m.cfg.Dir, id+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	writer := io.MultiWriter(file, hash)

	if _, err := writer.Write(magicBytes); err != nil {
		file.Close()
		return nil, err
	}

	hdr := snapshotHeader{
		Version:     headerVersion,
		CreatedAt:   now.UnixMilli(),
		NodeID:      m.cfg.NodeID,
		FilterCount: uint64(len(states)),
		Encrypted:   m.cipher != nil,
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	var hdrLen [4]byte
	binary.BigEndian.PutUint32(hdrLen[:], uint32(len(hdrJSON)))
	if _, err := writer.Write(hdrLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header length: %w", err)
	}
	if _, err := writer.Write(hdrJSON); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write header: %w", err)
	}

	records := make([]snapshotRecord, 0, len(states))
	for _, st := range states {
		records = append(records, recordFromState(st))
	}

	data, err := json.Marshal(records)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: marshal filters: %w", err)
	}
	if m.cipher != nil {
		data, err = m.cipher.Encrypt(data)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("snapshot: encrypt: %w", err)
		}
	}

	var dataLen [4]byte
	binary.BigEndian.PutUint32(dataLen[:], uint32(len(data)))
	if _, err := writer.Write(dataLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data length: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write data: %w", err)
	}

	// Checksum trailer covers all preceding bytes and is not hashed itself.
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		ID:          id,
		FilterCount: int64(len(states)),
		CreatedAt:   now.UnixMilli(),
		Size:        stat.Size(),
		Path:        finalPath,
		Checksum:    hex.EncodeToString(sum),
		NodeID:      m.cfg.NodeID,
	}, nil
}

// Load returns the filter states from the newest usable snapshot. Any file
// that cannot be loaded — corrupt, truncated, undecryptable, or mismatched
// against the configured cipher — is skipped in favor of older ones. With no
// usable file it returns an error matching ErrNoSnapshots, carrying the
// newest file's failure when there was one.
func (m *Manager) Load() ([]domain.State, *Info, error) {
	snapshots, err := m.List()
	if err != nil {
		return nil, nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil, ErrNoSnapshots
	}

	var newestErr error
	for i := len(snapshots) - 1; i >= 0; i-- {
		states, info, err := m.loadFile(snapshots[i].Path)
		if err == nil {
			return states, info, nil
		}
		if newestErr == nil {
			newestErr = err
		}
	}

	return nil, nil, fmt.Errorf("%w (newest: %v)", ErrNoSnapshots, newestErr)
}

func (m *Manager) loadFile(path string) ([]domain.State, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, nil, ErrChecksumMismatch
	}

	// Verify the trailer before trusting any field.
	payloadLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, payloadLen, checksumSize), expected); err != nil {
		return nil, nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, payloadLen), payloadLen); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, payloadLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, nil, ErrInvalidMagic
	}

	var hdrLenBuf [4]byte
	if _, err := io.ReadFull(br, hdrLenBuf[:]); err != nil {
		return nil, nil, err
	}
	hdrLen := binary.BigEndian.Uint32(hdrLenBuf[:])
	if hdrLen == 0 {
		return nil, nil, fmt.Errorf("snapshot: empty header")
	}
	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrJSON); err != nil {
		return nil, nil, err
	}

	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal header: %w", err)
	}

	var dataLenBuf [4]byte
	if _, err := io.ReadFull(br, dataLenBuf[:]); err != nil {
		return nil, nil, err
	}
	dataSize := binary.BigEndian.Uint32(dataLenBuf[:])
	data := make([]byte, dataSize)
	if _, err := io.ReadFull(br, data); err != nil {
		return nil, nil, err
	}

	if hdr.Encrypted {
		if m.cipher == nil {
			return nil, nil, fmt.Errorf("snapshot: file is encrypted and no key is configured")
		}
		data, err = m.cipher.Decrypt(data)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: decrypt: %w", err)
		}
	} else if m.cipher != nil {
		return nil, nil, fmt.Errorf("snapshot: expected encrypted snapshot")
	}

	var records []snapshotRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("snapshot: unmarshal filters: %w", err)
	}
	states := make([]domain.State, 0, len(records))
	for _, r := range records {
		states = append(states, r.toState())
	}

	info := &Info{
		ID:          strings.TrimSuffix(filepath.Base(path), fileExtension),
		FilterCount: int64(hdr.FilterCount),
		CreatedAt:   hdr.CreatedAt,
		Size:        stat.Size(),
		Path:        path,
		Checksum:    hex.EncodeToString(expected),
		NodeID:      hdr.NodeID,
	}

	return states, info, nil
}

// List lists snapshot files in lexical (oldest-first) order, metadata only.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(m.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	var infos []*Info
	for _, p := range paths {
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			ID:   strings.TrimSuffix(filepath.Base(p), fileExtension),
			Path: p,
			Size: stat.Size(),
		})
	}
	return infos, nil
}

// Prune deletes snapshots beyond RetentionCount, newest kept first.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil {
		return err
	}
	if len(infos) <= 1 || m.cfg.RetentionCount <= 0 {
		return nil
	}

	excess := len(infos) - m.cfg.RetentionCount
	for i := 0; i < excess; i++ {
		_ = os.Remove(infos[i].Path)
	}
	return nil
}

func (m *Manager) generateID(t time.Time) string {
	ts := t.Format("20060102150405")
	seq := 1

	entries, _ := os.ReadDir(m.cfg.Dir)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix+ts+"-") || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		seq++
	}

	return fmt.Sprintf("%s%s-%04d", filePrefix, ts, seq)
}
