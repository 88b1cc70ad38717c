package util

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

// PartSuffix marks artifacts that are still being written.
const PartSuffix = ".part"

// InterruptContext returns a context cancelled on SIGINT/SIGTERM. A second
// signal exits immediately after removing unfinished files under outputDir.
func InterruptContext(parent context.Context, outputDir string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sig:
		case <-ctx.Done():
			signal.Stop(sig)
			return
		}

		fmt.Println("\nInterrupt received. Finishing current request...")
		cancel()

		<-sig
		CleanupPartialFiles(outputDir)
		fmt.Println("\nExiting due to interrupt.")
		os.Exit(1)
	}()

	return ctx, func() {
		signal.Stop(sig)
		cancel()
	}
}

// pending holds the ".part" files this process is writing right now.
var pending = struct {
	sync.Mutex
	paths map[string]struct{}
}{paths: map[string]struct{}{}}

// BeginPart returns the temporary sibling of path and remembers it until
// FinishPart or CleanupPartialFiles removes it.
func BeginPart(path string) string {
	tmp := path + PartSuffix

	pending.Lock()
	pending.paths[tmp] = struct{}{}
	pending.Unlock()

	return tmp
}

// FinishPart renames tmp to path when err is nil and removes tmp otherwise.
func FinishPart(tmp, path string, err error) error {
	defer func() {
		pending.Lock()
		delete(pending.paths, tmp)
		pending.Unlock()
	}()

	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}

// CleanupPartialFiles removes the unfinished files this process started
// below outputDir. Other *.part files are left alone.
func CleanupPartialFiles(outputDir string) int {
	root, err := filepath.Abs(outputDir)
	if err != nil {
		return 0
	}

	pending.Lock()
	defer pending.Unlock()

	removed := 0
	for tmp := range pending.paths {
		abs, err := filepath.Abs(tmp)
		if err != nil {
			continue
		}
		if rel, err := filepath.Rel(root, abs); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}

		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Error cleaning up %s: %v\n", tmp, err)
			continue
		}

		delete(pending.paths, tmp)
		removed++
	}

	return removed
}

func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		if err := os.Remove(dir); err == nil {
			fmt.Printf("Removed empty output folder: %s\n", dir)
		}
	}
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
