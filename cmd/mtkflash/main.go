// Command mtkflash drives a single MediaTek device over USB or USB-CDC
// serial: identify the chip, read/write partitions, and flip the bootloader
// lock state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"mtkflash/internal/config"
	"mtkflash/internal/da"
	"mtkflash/internal/device"
	"mtkflash/internal/mtkerr"
	"mtkflash/internal/port"
	"mtkflash/internal/seccfg"
	"mtkflash/internal/storage"
)

var (
	mode        = flag.String("mode", "identify", "operation: identify, read-partition, write-partition, lock, unlock")
	portName    = flag.String("port", "", "serial port name (empty = auto-detect over USB-CDC)")
	backend     = flag.String("backend", "", "transport backend: usb, serial (default from config)")
	daPath      = flag.String("da", "", "path to the DA container file (default from config)")
	partition   = flag.String("partition", "", "partition name for read-partition/write-partition")
	file        = flag.String("file", "", "local file path for read-partition/write-partition")
	storageKind = flag.String("storage", "emmc", "storage type: emmc, ufs")
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *daPath != "" {
		cfg.DAPath = *daPath
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	p, err := openPort(cfg)
	if err != nil {
		return fmt.Errorf("open port: %w", err)
	}
	defer p.Close()

	daBytes, err := os.ReadFile(cfg.DAPath)
	if err != nil {
		return fmt.Errorf("read DA file: %w", err)
	}
	daFile, err := da.Parse(daBytes)
	if err != nil {
		return fmt.Errorf("parse DA file: %w", err)
	}

	dev := device.Init(p, daFile)

	st := storage.Emmc
	if *storageKind == "ufs" {
		st = storage.Ufs
	}

	log.Print(labelStyle.Render("entering DA mode..."))
	if err := dev.EnterDAMode(ctx, st); err != nil {
		return fmt.Errorf("enter DA mode: %w", err)
	}

	switch *mode {
	case "identify":
		return runIdentify(dev)
	case "read-partition":
		return runReadPartition(ctx, dev)
	case "write-partition":
		return runWritePartition(ctx, dev)
	case "lock":
		return runLockState(ctx, dev, seccfg.Lock)
	case "unlock":
		return runLockState(ctx, dev, seccfg.Unlock)
	default:
		return mtkerr.New(mtkerr.Unsupported, "unknown mode: "+*mode)
	}
}

func openPort(cfg *config.Config) (port.Port, error) {
	readTimeout := cfg.PortTimeout
	if readTimeout <= 0 {
		readTimeout = port.DefaultReadTimeout
	}

	if cfg.Backend == "serial" {
		candidates, err := port.FindMTKPorts()
		if err != nil {
			return nil, err
		}
		name := *portName
		if name == "" {
			if len(candidates) == 0 {
				return nil, mtkerr.New(mtkerr.NotFound, "no MTK serial port found")
			}
			name = candidates[0].Name
		}
		return port.OpenSerial(name, port.Preloader, readTimeout)
	}
	return port.OpenUSB(readTimeout)
}

func runIdentify(dev *device.Device) error {
	info := dev.Info()
	fmt.Printf("hw_code=0x%04X hw_sub_code=0x%04X hw_ver=0x%04X sw_ver=0x%04X\n",
		info.HwCode, info.HwSubCode, info.HwVer, info.SwVer)
	fmt.Printf("soc_id=%x\n", info.SocID)
	fmt.Printf("me_id=%x\n", info.MeID)
	return nil
}

func runReadPartition(ctx context.Context, dev *device.Device) error {
	if *partition == "" || *file == "" {
		return mtkerr.New(mtkerr.Unsupported, "read-partition requires -partition and -file")
	}
	data, err := dev.ReadPartition(ctx, *partition, progressPrinter(*partition))
	if err != nil {
		return err
	}
	return os.WriteFile(*file, data, 0o644)
}

func runWritePartition(ctx context.Context, dev *device.Device) error {
	if *partition == "" || *file == "" {
		return mtkerr.New(mtkerr.Unsupported, "write-partition requires -partition and -file")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	return dev.WritePartition(ctx, *partition, data, progressPrinter(*partition))
}

func runLockState(ctx context.Context, dev *device.Device, lockFlag seccfg.LockFlag) error {
	out, err := dev.SetSecCfgLockState(ctx, lockFlag)
	if err != nil {
		return err
	}
	fmt.Printf("seccfg updated, %d bytes written\n", len(out))
	return nil
}

func progressPrinter(name string) device.ProgressFunc {
	start := time.Now()
	return func(done, total uint64) {
		pct := float64(0)
		if total > 0 {
			pct = float64(done) / float64(total) * 100
		}
		fmt.Printf("\r%s: %6.2f%% (%d/%d) %s", name, pct, done, total, time.Since(start).Round(time.Second))
	}
}
