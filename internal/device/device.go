// Package device exposes the single façade the UI drives: identify the
// chip, bring up DA1/DA2, enumerate partitions, and read/write/lock the
// device — composing every lower-level protocol package into one sequential
// session.
package device

import (
	"context"
	"sync"

	"mtkflash/internal/da"
	"mtkflash/internal/mtkerr"
	"mtkflash/internal/port"
	"mtkflash/internal/preloader"
	"mtkflash/internal/seccfg"
	"mtkflash/internal/sej"
	"mtkflash/internal/stats"
	"mtkflash/internal/storage"
	"mtkflash/internal/xflash"
)

// Info is the identification and session state shared with the UI under a
// mutex, copied out rather than locked across I/O.
type Info struct {
	mu sync.RWMutex

	HwCode    uint16
	HwSubCode uint16
	HwVer     uint16
	SwVer     uint16
	SocID     []byte
	MeID      []byte
	Ready     bool
}

// InfoSnapshot is Info without its mutex.
type InfoSnapshot struct {
	HwCode    uint16
	HwSubCode uint16
	HwVer     uint16
	SwVer     uint16
	SocID     []byte
	MeID      []byte
	Ready     bool
}

func (i *Info) snapshot() InfoSnapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return InfoSnapshot{
		HwCode: i.HwCode, HwSubCode: i.HwSubCode, HwVer: i.HwVer, SwVer: i.SwVer,
		SocID: i.SocID, MeID: i.MeID, Ready: i.Ready,
	}
}

// ProgressFunc reports (bytes_done, bytes_total) during a partition
// transfer.
type ProgressFunc func(done, total uint64)

// gptScanSize is how much of the USER area (eMMC) or default LU (UFS) is
// read up front so storage.ParseGPT has the primary header and the full
// entry array to work with, regardless of which candidate sector size the
// signature scan matches.
const gptScanSize = 0x100000

// Device is the single-session façade. It owns the port exclusively: there
// is no locking of the port itself, only of the Info it publishes.
type Device struct {
	Port port.Port
	DA   *da.File

	conn   *preloader.Connection
	driver *xflash.Driver

	info        Info
	storageType storage.Type
	partitions  []storage.Partition

	Stats *stats.SessionStats
}

// Init wraps an already-open port and a parsed DA container. It performs no
// I/O; call EnterDAMode to run the bring-up sequence.
func Init(p port.Port, daFile *da.File) *Device {
	return &Device{
		Port:  p,
		DA:    daFile,
		conn:  preloader.New(p),
		Stats: &stats.SessionStats{},
	}
}

// Info returns a copy of the current identification/session state.
func (d *Device) Info() InfoSnapshot { return d.info.snapshot() }

// EnterDAMode runs the preloader handshake, identifies the chip, selects
// the matching DA entry, brings up DA1/DA2, and caches the GPT.
func (d *Device) EnterDAMode(ctx context.Context, storageType storage.Type) error {
	if err := d.conn.Handshake(ctx); err != nil {
		return err
	}

	hwSwVer, err := d.conn.GetHwSwVer(ctx)
	if err != nil {
		return err
	}
	hwCode, err := d.conn.GetHwCode(ctx)
	if err != nil {
		return err
	}

	entry, ok := d.DA.ByHwCode(hwCode, hwSwVer.HwSubCode)
	if !ok {
		return mtkerr.New(mtkerr.NotFound, "device: no DA entry for this chip")
	}

	socID, err := d.conn.GetSocId(ctx)
	if err != nil {
		return err
	}
	meID, err := d.conn.GetMeId(ctx)
	if err != nil {
		return err
	}

	da1, ok := entry.DA1()
	if !ok {
		return mtkerr.New(mtkerr.NotFound, "device: DA entry has no DA1 region")
	}
	da2, ok := entry.DA2()
	if !ok {
		return mtkerr.New(mtkerr.NotFound, "device: DA entry has no DA2 region")
	}

	d.driver = xflash.NewDriver(d.Port)
	if err := d.driver.BringUp(ctx, d.conn, da1.Data, da1.Addr, da1.SigLen); err != nil {
		return err
	}
	if err := d.driver.BootTo(ctx, da2.Addr, da2.Data); err != nil {
		return err
	}

	d.storageType = storageType

	raw, err := d.driver.ReadPartition(ctx, storageTypeCode(storageType), partTypeForStorage(storageType), 0, gptScanSize, nil)
	if err != nil {
		return err
	}
	partitions, err := storage.ParseGPT(raw, storageType)
	if err != nil {
		return err
	}
	d.SetPartitions(partitions)

	d.info.mu.Lock()
	d.info.HwCode, d.info.HwSubCode = hwCode, hwSwVer.HwSubCode
	d.info.HwVer, d.info.SwVer = hwSwVer.HwVer, hwSwVer.SwVer
	d.info.SocID, d.info.MeID = socID, meID
	d.info.Ready = true
	d.info.mu.Unlock()

	return nil
}

// Crypto exposes the SEJ engine bound to this device's memory-access path,
// used by seccfg.
func (d *Device) Crypto() *sej.Crypto {
	return sej.New(d.driver)
}

// findPartition resolves a partition by name against the cached GPT.
func (d *Device) findPartition(name string) (storage.Partition, bool) {
	for _, p := range d.partitions {
		if p.Name == name {
			return p, true
		}
	}
	return storage.Partition{}, false
}

// SetPartitions replaces the cached GPT partition list, normally populated
// by reading and parsing the GPT partition immediately after EnterDAMode.
func (d *Device) SetPartitions(parts []storage.Partition) { d.partitions = parts }

// Partitions returns the cached GPT partition list.
func (d *Device) Partitions() []storage.Partition { return d.partitions }

// ReadPartition resolves name against the cached GPT and reads it in full.
func (d *Device) ReadPartition(ctx context.Context, name string, progress ProgressFunc) ([]byte, error) {
	part, ok := d.findPartition(name)
	if !ok {
		return nil, mtkerr.New(mtkerr.NotFound, "device: unknown partition "+name)
	}
	data, err := d.driver.ReadPartition(ctx, storageTypeCode(d.storageType), partTypeForKind(part.Kind), part.Address, part.Size, xflash.ProgressFunc(progress))
	if err != nil {
		return nil, err
	}
	d.Stats.AddBytesRead(uint64(len(data)))
	return data, nil
}

// WritePartition rejects data larger than the partition, then pads/truncates
// and writes it.
func (d *Device) WritePartition(ctx context.Context, name string, data []byte, progress ProgressFunc) error {
	part, ok := d.findPartition(name)
	if !ok {
		return mtkerr.New(mtkerr.NotFound, "device: unknown partition "+name)
	}
	if uint64(len(data)) > part.Size {
		return mtkerr.New(mtkerr.Unsupported, "device: data exceeds partition size")
	}
	if err := d.driver.WritePartition(ctx, storageTypeCode(d.storageType), partTypeForKind(part.Kind), part.Address, part.Size, data, xflash.ProgressFunc(progress)); err != nil {
		return err
	}
	d.Stats.AddBytesWritten(uint64(len(data)))
	return nil
}

// SetSecCfgLockState reads the seccfg partition, parses it, re-seals it
// with the requested lock flag, writes it back, and returns the bytes
// actually written.
func (d *Device) SetSecCfgLockState(ctx context.Context, flag seccfg.LockFlag) ([]byte, error) {
	raw, err := d.ReadPartition(ctx, "seccfg", nil)
	if err != nil {
		return nil, err
	}
	crypto := d.Crypto()

	parsed, err := seccfg.Parse(ctx, raw, crypto)
	if err != nil {
		return nil, err
	}

	out, err := seccfg.Create(ctx, crypto, *parsed, flag)
	if err != nil {
		return nil, err
	}

	if err := d.WritePartition(ctx, "seccfg", out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func storageTypeCode(t storage.Type) uint32 {
	switch t {
	case storage.Emmc:
		return 1
	case storage.Ufs:
		return 2
	default:
		return 0
	}
}

// partTypeForStorage gives the part_type used for the raw, name-free GPT
// bootstrap read: the eMMC USER area (8), or LU0 on UFS.
func partTypeForStorage(t storage.Type) uint32 {
	if t == storage.Emmc {
		return storage.EmmcUser
	}
	return 0
}

// partTypeForKind resolves a cached partition's part_type from its storage
// kind. Every GPT-backed partition on eMMC lives in the USER area; boot1,
// boot2, and rpmb are separate raw areas the GPT never describes.
func partTypeForKind(k storage.Kind) uint32 {
	if k == storage.KindEmmc {
		return storage.EmmcUser
	}
	return 0
}
