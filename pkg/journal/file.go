package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/util"
)

// FileScheme prefixes journal addresses that name a local file.
const FileScheme = "file://"

// Rotation bounds the size of a file journal.
type Rotation struct {
	MaxSize    int64 // bytes before the log is rotated, 0 disables rotation
	MaxBackups int   // rotated files kept, 0 keeps all
}

// DefaultRotation keeps five 10 MiB generations.
var DefaultRotation = Rotation{MaxSize: 10 << 20, MaxBackups: 5}

// entry is one line of the journal file.
type entry struct {
	Time   time.Time `json:"time"`
	Run    string    `json:"run"`
	Router string    `json:"router"`
	State  string    `json:"state"`
}

type fileLock struct {
	LockInfo
	Run string `json:"run"`
}

// File is a Journal kept in a JSON-lines file, one entry per state change.
// The run lock lives next to it in <path>.lock.
type File struct {
	path     string
	run      string
	rotation Rotation
	now      func() time.Time

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFile opens (creating if needed) the journal file at path for run.
func NewFile(path, run string, rotation Rotation) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	f := &File{path: path, run: run, rotation: rotation, now: time.Now}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

// Open returns the journal named by addr: a file:// path or a Redis address.
func Open(ctx context.Context, addr, run string) (Journal, error) {
	if path, ok := strings.CutPrefix(addr, FileScheme); ok {
		util.Debugf("Journal for run %s in file %s", run, path)
		return NewFile(path, run, DefaultRotation)
	}
	util.Debugf("Journal for run %s in redis %s", run, addr)
	return NewRedis(ctx, addr, run)
}

func (f *File) open() error {
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	f.file = file
	f.enc = json.NewEncoder(file)
	return nil
}

func (f *File) lockPath() string { return f.path + ".lock" }

func (f *File) readLock() (*fileLock, error) {
	data, err := os.ReadFile(f.lockPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var l fileLock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.lockPath(), err)
	}
	return &l, nil
}

func (f *File) expired(l *fileLock) bool {
	return !f.now().Before(l.Acquired.Add(l.TTL))
}

// Acquire creates the lock file. An expired lock is taken over.
func (f *File) Acquire(_ context.Context, holder string, ttl time.Duration) error {
	held, err := f.readLock()
	if err != nil {
		return err
	}
	if held != nil {
		if !f.expired(held) {
			return fmt.Errorf("%w: %s held by %s", util.ErrLocked, f.path, held.Holder)
		}
		util.Warnf("Taking over expired journal lock from %s", held.Holder)
		if err := os.Remove(f.lockPath()); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	fd, err := os.OpenFile(f.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", util.ErrLocked, f.path)
		}
		return err
	}
	defer fd.Close()
	l := fileLock{LockInfo: LockInfo{Holder: holder, Acquired: f.now(), TTL: ttl}, Run: f.run}
	return json.NewEncoder(fd).Encode(l)
}

// Release removes the lock file if holder still owns it.
func (f *File) Release(_ context.Context, holder string) error {
	held, err := f.readLock()
	if err != nil || held == nil || held.Holder != holder {
		return err
	}
	if err := os.Remove(f.lockPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *File) Record(_ context.Context, router string, state device.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rotation.MaxSize > 0 {
		if info, err := f.file.Stat(); err == nil && info.Size() >= f.rotation.MaxSize {
			if err := f.rotate(); err != nil {
				return fmt.Errorf("rotating journal: %w", err)
			}
		}
	}
	return f.enc.Encode(entry{Time: f.now(), Run: f.run, Router: router, State: state.String()})
}

// Status replays the current file; the last entry per router wins.
func (f *File) Status(context.Context) (*Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := &Status{Run: f.run}
	held, err := f.readLock()
	if err != nil {
		return nil, err
	}
	if held != nil && held.Run == f.run && !f.expired(held) {
		st.Lock = &held.LockInfo
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	latest := make(map[string]RouterState)
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		var e entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			util.Warnf("journal: skipping malformed entry at line %d: %v", line, err)
			continue
		}
		if e.Run != f.run {
			continue
		}
		latest[e.Router] = RouterState{Router: e.Router, State: e.State, Updated: e.Time}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, rs := range latest {
		st.Routers = append(st.Routers, rs)
	}
	sortRouters(st.Routers)
	return st, nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

func (f *File) rotate() error {
	if err := f.file.Close(); err != nil {
		return err
	}
	rotated := f.path + "." + f.now().Format("20060102-150405.000000000")
	if err := os.Rename(f.path, rotated); err != nil {
		return err
	}
	if err := f.open(); err != nil {
		return err
	}
	if f.rotation.MaxBackups > 0 {
		f.pruneBackups()
	}
	return nil
}

// pruneBackups removes the oldest rotated files beyond MaxBackups.
func (f *File) pruneBackups() {
	matches, err := filepath.Glob(f.path + ".*")
	if err != nil {
		return
	}
	var backups []string
	for _, m := range matches {
		if m == f.lockPath() {
			continue
		}
		backups = append(backups, m)
	}
	if len(backups) <= f.rotation.MaxBackups {
		return
	}
	// Timestamped suffixes sort chronologically.
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-f.rotation.MaxBackups] {
		if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
			util.Warnf("journal: removing %s: %v", old, err)
		}
	}
}
