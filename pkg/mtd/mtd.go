package mtd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kairos-io/recoveryroots/internal/constants"
	internalUtils "github.com/kairos-io/recoveryroots/internal/utils"
	"github.com/kairos-io/recoveryroots/pkg/schema"
	"github.com/twpayne/go-vfs/v4"
)

// Flash is the flash management interface the format engine drives.
type Flash interface {
	ScanPartitions() error
	FindPartitionByName(name string) (schema.Partition, bool)
	OpenForWrite(p schema.Partition) (Writer, error)
	// BlockDevicePath is the block device used to mount p.
	BlockDevicePath(p schema.Partition) string
}

// Writer is an open write session on one partition.
type Writer interface {
	// EraseAll erases every good block of the partition.
	EraseAll() error
	Close() error
}

// Manager reads the partition table from /proc/mtd and opens partitions under /dev/mtd.
type Manager struct {
	fs         vfs.FS
	procPath   string
	devDir     string
	blockDir   string
	partitions []schema.Partition
	scanned    bool
}

func NewManager(fs vfs.FS) *Manager {
	return NewManagerAt(fs, constants.ProcMtd, constants.MtdDevDir, constants.MtdBlockDevDir)
}

func NewManagerAt(fs vfs.FS, procPath, devDir, blockDir string) *Manager {
	return &Manager{fs: fs, procPath: procPath, devDir: devDir, blockDir: blockDir}
}

// ScanPartitions rereads the partition table, dropping whatever was read before.
func (m *Manager) ScanPartitions() error {
	f, err := m.fs.Open(m.procPath)
	if err != nil {
		return fmt.Errorf("reading partition table: %w", err)
	}
	defer f.Close()

	var parts []schema.Partition
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		p, ok := parsePartitionLine(sc.Text())
		if !ok {
			continue
		}
		parts = append(parts, p)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading partition table: %w", err)
	}

	m.partitions = parts
	m.scanned = true
	internalUtils.Log.Debug().Int("partitions", len(parts)).Str("file", m.procPath).Msg("Scanned flash partitions")
	return nil
}

// parsePartitionLine parses `mtd3: 00500000 00020000 "cache"`. The header line and anything
// else not matching is skipped.
func parsePartitionLine(line string) (schema.Partition, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 || !strings.HasPrefix(fields[0], "mtd") || !strings.HasSuffix(fields[0], ":") {
		return schema.Partition{}, false
	}
	idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(fields[0], "mtd"), ":"))
	if err != nil {
		return schema.Partition{}, false
	}
	size, err := strconv.ParseUint(fields[1], 16, 64)
	if err != nil {
		return schema.Partition{}, false
	}
	erase, err := strconv.ParseUint(fields[2], 16, 32)
	if err != nil {
		return schema.Partition{}, false
	}
	name := strings.Trim(strings.Join(fields[3:], " "), `"`)
	return schema.Partition{Index: idx, Name: name, Size: size, EraseSize: uint32(erase)}, true
}

// Partitions returns the table read by the last scan.
func (m *Manager) Partitions() []schema.Partition {
	return m.partitions
}

// FindPartitionByName looks the name up in the last scanned table.
func (m *Manager) FindPartitionByName(name string) (schema.Partition, bool) {
	if !m.scanned {
		internalUtils.Log.Warn().Str("partition", name).Msg("Partition lookup before scanning")
	}
	for _, p := range m.partitions {
		if p.Name == name {
			return p, true
		}
	}
	return schema.Partition{}, false
}

// DevicePath is the character device of p, e.g. /dev/mtd/mtd3.
func (m *Manager) DevicePath(p schema.Partition) string {
	return filepath.Join(m.devDir, fmt.Sprintf("mtd%d", p.Index))
}

// BlockDevicePath is the mountable block device of p, e.g. /dev/block/mtdblock3.
func (m *Manager) BlockDevicePath(p schema.Partition) string {
	return filepath.Join(m.blockDir, fmt.Sprintf("mtdblock%d", p.Index))
}

// OpenForWrite opens the partition device read write.
func (m *Manager) OpenForWrite(p schema.Partition) (Writer, error) {
	dev := m.DevicePath(p)
	f, err := m.fs.OpenFile(dev, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dev, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", dev, err)
	}
	internalUtils.Log.Debug().Str("device", dev).Str("partition", p.Name).Bool("image", fi.Mode().IsRegular()).Msg("Opened flash partition")
	return &partitionWriter{f: f, p: p, image: fi.Mode().IsRegular(), size: fi.Size()}, nil
}

type partitionWriter struct {
	f     *os.File
	p     schema.Partition
	image bool
	size  int64
}

func (w *partitionWriter) EraseAll() error {
	if w.image {
		return w.fill()
	}
	skipped, err := eraseDevice(w.f)
	if skipped > 0 {
		internalUtils.Log.Warn().Int("blocks", skipped).Str("partition", w.p.Name).Msg("Skipped bad blocks")
	}
	return err
}

// fill writes the erased state, 0xFF, over an image file standing in for the flash device.
func (w *partitionWriter) fill() error {
	size := w.size
	if size == 0 {
		size = int64(w.p.Size)
	}
	chunk := int64(w.p.EraseSize)
	if chunk == 0 {
		chunk = 64 * 1024
	}
	buf := make([]byte, chunk)
	for i := range buf {
		buf[i] = 0xff
	}
	for off := int64(0); off < size; off += chunk {
		n := chunk
		if off+n > size {
			n = size - off
		}
		if _, err := w.f.WriteAt(buf[:n], off); err != nil {
			return fmt.Errorf("erasing %s at 0x%08x: %w", w.p.Name, off, err)
		}
	}
	return w.f.Sync()
}

func (w *partitionWriter) Close() error {
	return w.f.Close()
}
